// Package geoip maps client addresses to an ISO country code for request logs.
package geoip

import (
	"log/slog"
	"net"
	"net/netip"

	"github.com/oschwald/maxminddb-golang"
)

// Resolver is safe to use with no database loaded; every lookup then
// returns an empty country.
type Resolver struct {
	db *maxminddb.Reader
}

type countryRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
	RegisteredCountry struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"registered_country"`
}

// Open loads the database at path. A missing or unreadable file disables
// lookups instead of failing startup.
func Open(path string) *Resolver {
	if path == "" {
		return &Resolver{}
	}
	db, err := maxminddb.Open(path)
	if err != nil {
		slog.Warn("geoip: database unavailable, country lookup disabled", "path", path, "error", err)
		return &Resolver{}
	}
	slog.Info("geoip: database loaded", "path", path, "type", db.Metadata.DatabaseType)
	return &Resolver{db: db}
}

func (r *Resolver) Enabled() bool {
	return r != nil && r.db != nil
}

// Country returns the ISO code for ip, or "" when unknown. Private and
// loopback addresses are never looked up.
func (r *Resolver) Country(ip string) string {
	if !r.Enabled() || ip == "" {
		return ""
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil || addr.IsLoopback() || addr.IsPrivate() || addr.IsUnspecified() {
		return ""
	}
	var rec countryRecord
	if err := r.db.Lookup(net.IP(addr.AsSlice()), &rec); err != nil {
		return ""
	}
	if rec.Country.ISOCode != "" {
		return rec.Country.ISOCode
	}
	return rec.RegisteredCountry.ISOCode
}

func (r *Resolver) Close() error {
	if r.Enabled() {
		return r.db.Close()
	}
	return nil
}
