package pricetable

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"farmaprice-backend/lib/money"

	"github.com/shopspring/decimal"
)

// Record is one output row of a San Pablo batch. Exactly one record is
// emitted per input identifier, resolved or not, so the output table
// always has the same cardinality as the input list.
type Record struct {
	UPC        string
	NonPromo   *decimal.Decimal
	Promo      *decimal.Decimal
	Name       string
	CapturedAt time.Time
}

const TimestampFormat = "2006-01-02 15:04:05"

var Header = []string{
	"UPC",
	"Precio sin promoción",
	"Precio con promoción",
	"Nombre del producto",
	"Fecha Scrapping",
}

// utf8Bom keeps Excel happy with the accented spanish headers.
var utf8Bom = []byte{0xEF, 0xBB, 0xBF}

func (r Record) fields() []string {
	return []string{
		r.UPC,
		money.Format(r.NonPromo),
		money.Format(r.Promo),
		r.Name,
		r.CapturedAt.Format(TimestampFormat),
	}
}

// EncodeCSV renders a full table (BOM + header + rows) for upload to
// object storage.
func EncodeCSV(records []Record) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8Bom)

	w := csv.NewWriter(&buf)
	err := w.Write(Header)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		err = w.Write(r.fields())
		if err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// AppendCSV appends rows to a local csv file, creating parent
// directories and writing the BOM + header only when the file does not
// exist yet.
func AppendCSV(path string, records []Record) error {
	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return err
	}

	_, err = os.Stat(path)
	isNew := os.IsNotExist(err)
	if err != nil && !isNew {
		return err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	if isNew {
		_, err = f.Write(utf8Bom)
		if err != nil {
			return err
		}
	}

	w := csv.NewWriter(f)
	if isNew {
		err = w.Write(Header)
		if err != nil {
			return err
		}
	}
	for _, r := range records {
		err = w.Write(r.fields())
		if err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// SourcePrice is one output row of the plain HTTP scrapers, which only
// report a single observed price per barcode.
type SourcePrice struct {
	Barcode string
	Price   *decimal.Decimal
	Date    time.Time
	Source  string
}

// EncodeSourcePricesCSV renders the simple-scraper table. Absent
// prices render as empty cells, matching the historical output shape
// of these feeds.
func EncodeSourcePricesCSV(rows []SourcePrice) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	err := w.Write([]string{"Barra", "Precio", "Fecha", "Origen"})
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		price := ""
		if r.Price != nil {
			price = r.Price.StringFixed(2)
		}
		err = w.Write([]string{r.Barcode, price, r.Date.Format("2006-01-02"), r.Source})
		if err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadBarcodeCSV extracts the "Barra" column from an input artifact.
func ReadBarcodeCSV(data []byte) ([]string, error) {
	data = bytes.TrimPrefix(data, utf8Bom)

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("input csv is empty")
	}

	column := -1
	for i, name := range rows[0] {
		if name == "Barra" {
			column = i
			break
		}
	}
	if column < 0 {
		return nil, fmt.Errorf("input csv has no 'Barra' column")
	}

	var codes []string
	for _, row := range rows[1:] {
		if column >= len(row) {
			continue
		}
		codes = append(codes, row[column])
	}
	return codes, nil
}
