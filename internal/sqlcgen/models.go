package sqlcgen

import "time"

type Client struct {
	ClientID   int64
	ClientName string
}

type Site struct {
	SiteID      string
	SiteName    *string
	SiteAddress *string
	LatDec      *float64
	LongDec     *float64
}

type Link struct {
	LinkID    int64
	ApplID    *string
	ClientID  int64
	SiteFrom  string
	SiteTo    string
	Freq      *int32
	FreqPair  *int32
	Bandwidth *int32
	Model     *string
}

// MapLink is one joined row for the map payload: the link plus its client
// name and both endpoint coordinates.
type MapLink struct {
	LinkID     int64
	ApplID     *string
	ClientID   int64
	ClientName string
	SiteFrom   string
	FromName   *string
	FromLat    *float64
	FromLon    *float64
	SiteTo     string
	ToName     *string
	ToLat      *float64
	ToLon      *float64
	Freq       *int32
	Bandwidth  *int32
	Model      *string
}

type ImportRun struct {
	ID          string
	Status      string
	Stats       []byte
	StartedAt   time.Time
	CompletedAt *time.Time
	LastError   *string
}
