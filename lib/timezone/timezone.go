package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("America/Mexico_City")
	if err != nil {
		panic(err)
	}
}

// force the timezone to Mexico City because the servers run in
// arbitrary cloud regions and the Fecha Scrapping column (and dated
// output filenames) must reflect the storefronts' local day
func Now() time.Time {
	return time.Now().In(Location)
}
