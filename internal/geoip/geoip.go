package geoip

import (
	"net"

	"github.com/oschwald/maxminddb-golang"
	"github.com/pkg/errors"
)

// Locator resolves client IPs to ISO country codes
type Locator interface {
	Country(ip string) string
}

// Nop is a Locator without a database; it never knows a country
type Nop struct{}

// Country implements the Locator interface
func (Nop) Country(string) string { return "" }

type countryRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
}

// DB is a Locator backed by a MaxMind country database
type DB struct {
	reader *maxminddb.Reader
}

// Open opens the MaxMind database at path
func Open(path string) (*DB, error) {
	r, err := maxminddb.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "geoip: could not open database '%s'", path)
	}
	return &DB{reader: r}, nil
}

// Country implements the Locator interface; unknown or invalid addresses
// result in an empty string
func (db *DB) Country(ip string) string {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return ""
	}
	var rec countryRecord
	if err := db.reader.Lookup(parsed, &rec); err != nil {
		return ""
	}
	return rec.Country.ISOCode
}

// Close closes the database
func (db *DB) Close() error {
	return db.reader.Close()
}
