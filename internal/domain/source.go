package domain

import (
	"fmt"
	"strings"
)

// Source identifies a VIIRS satellite whose near-real-time detections are polled.
type Source string

const (
	SourceSNPP   Source = "SNPP"
	SourceNOAA20 Source = "NOAA20"
	SourceNOAA21 Source = "NOAA21"
)

// DefaultSources lists every known source in polling order.
var DefaultSources = []Source{SourceSNPP, SourceNOAA20, SourceNOAA21}

// ParseSource normalizes a source name, accepting any letter case.
func ParseSource(s string) (Source, error) {
	src := Source(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range DefaultSources {
		if src == known {
			return src, nil
		}
	}
	return "", fmt.Errorf("unknown source %q", s)
}

// Product returns the FIRMS product name, e.g. "VIIRS_NOAA20_NRT".
func (s Source) Product() string {
	return "VIIRS_" + string(s) + "_NRT"
}

// FileName returns the name of the record file kept for the source, e.g. "noaa20.csv".
func (s Source) FileName() string {
	return strings.ToLower(string(s)) + ".csv"
}

func (s Source) String() string { return string(s) }
