package commands

import (
	"os"
	"time"

	"farmaprice-backend/lib/browser"
	"farmaprice-backend/lib/money"
	"farmaprice-backend/lib/pricetable"
	"farmaprice-backend/lib/serviceutil"
	"farmaprice-backend/lib/storage"
	"farmaprice-backend/lib/upclist"
	"farmaprice-backend/services/sanpablo"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var sanPabloUpcs *string
var sanPabloOut *string
var sanPabloHeaded *bool

func init() {
	sanPabloUpcs = sanPabloCmd.Flags().String("upcs", "upc_list.json", "The json file holding the UPC list to scrape.")
	sanPabloOut = sanPabloCmd.Flags().String("out", "precios.csv", "The csv file results are appended to.")
	sanPabloHeaded = sanPabloCmd.Flags().Bool("headed", false, "Run the browser with a visible window.")
	rootCmd.AddCommand(sanPabloCmd)
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

var sanPabloCmd = &cobra.Command{
	Use:   "sanpablo [--upcs <upc_list.json>] [--out <precios.csv>] [--headed]",
	Short: "Scrapes San Pablo prices for a UPC list and appends them to a csv.",
	Run: func(cmd *cobra.Command, args []string) {
		data, err := os.ReadFile(*sanPabloUpcs)
		if err != nil {
			serviceutil.Fatal("failed to read upc list", err)
		}
		upcs, err := upclist.Parse(data)
		if err != nil {
			serviceutil.Fatal("failed to parse upc list", err)
		}

		service := sanpablo.NewService(storage.NewDir("."), sanpablo.Options{
			Browser: browser.Options{Headed: *sanPabloHeaded},
		})

		t1 := time.Now()
		records, err := service.Run(cmd.Context(), upcs)
		if err != nil {
			serviceutil.Fatal("failed to run batch", err)
		}
		t2 := time.Now()

		t := newTable()
		t.AppendHeader(table.Row{"UPC", "Precio", "Promoción", "Producto"})
		for _, rec := range records {
			t.AppendRow(table.Row{
				rec.UPC,
				money.Format(rec.NonPromo),
				money.Format(rec.Promo),
				rec.Name,
			})
		}
		t.AppendFooter(table.Row{"", "", "", t2.Sub(t1).Round(time.Second)})
		t.Render()

		err = pricetable.AppendCSV(*sanPabloOut, records)
		if err != nil {
			serviceutil.Fatal("failed to append results csv", err)
		}
	},
}
