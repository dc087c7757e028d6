package pfanalytics

import (
	"net/netip"

	"github.com/oschwald/geoip2-golang/v2"
)

// GeoLocator résout le pays d'une adresse. Un GeoLocator nil retourne toujours "".
type GeoLocator struct {
	reader *geoip2.Reader
}

func OpenGeo(path string) (*GeoLocator, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	return &GeoLocator{reader: reader}, nil
}

// Country retourne le code ISO du pays, vide si inconnu
func (g *GeoLocator) Country(address string) string {
	if g == nil || g.reader == nil {
		return ""
	}
	addr, err := netip.ParseAddr(address)
	if err != nil || addr.IsLoopback() || addr.IsPrivate() {
		return ""
	}
	record, err := g.reader.Country(addr.Unmap())
	if err != nil {
		return ""
	}
	return record.Country.ISOCode
}

func (g *GeoLocator) Close() error {
	if g == nil || g.reader == nil {
		return nil
	}
	return g.reader.Close()
}
