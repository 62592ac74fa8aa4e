package citygml

import (
	"encoding/xml"
	"errors"
	"io"
	"runtime"
)

// ErrStopStreaming is returned by a stream callback to end the scan early
// without error, e.g. once a building-count limit is reached.
var ErrStopStreaming = errors.New("citygml: streaming stopped")

// streamGCInterval is how many buildings are processed between explicit
// garbage collections on the streaming path.
const streamGCInterval = 64

// StreamBuildings scans the document token by token and invokes fn once per
// completed bldg:Building element. Each callback receives a Building whose
// reference scope is local to that building's subtree, so xlink targets
// outside the building are reported as missing exactly like absent ids in
// whole-document mode. The subtree is detached and released after fn
// returns, keeping peak memory proportional to one building rather than the
// document. fn returning ErrStopStreaming stops the scan cleanly.
func StreamBuildings(r io.Reader, fn func(*Building) error) error {
	dec := xml.NewDecoder(r)
	sawRoot := false
	processed := 0
	srs := ""
	for {
		tok, err := dec.Token()
		if err != nil {
			if err == io.EOF {
				if !sawRoot {
					return io.ErrUnexpectedEOF
				}
				return nil
			}
			return err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		sawRoot = true
		if srs == "" {
			// srsName is usually declared on the envelope, ahead of any
			// building in the token stream
			for _, a := range start.Attr {
				if a.Name.Local == "srsName" {
					srs = a.Value
					break
				}
			}
		}
		if start.Name.Local != "Building" {
			continue
		}

		el, err := decodeElement(dec, start, nil)
		if err != nil {
			return err
		}
		// reference scope is just this building's subtree; the CRS
		// declaration captured above still applies to it
		local := NewDocument(el)
		local.srs = srs
		b := &Building{El: el, doc: local}
		err = fn(b)

		// drop everything tied to the completed building before moving on
		el.Detach()
		el = nil
		local = nil
		b = nil
		processed++
		if processed%streamGCInterval == 0 {
			runtime.GC()
		}

		if err != nil {
			if errors.Is(err, ErrStopStreaming) {
				return nil
			}
			return err
		}
	}
}
