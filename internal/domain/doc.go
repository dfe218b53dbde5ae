// Package domain models NASA FIRMS active-fire detections and the cumulative,
// append-only record kept for each satellite source.
//
// # Data Source
//
// Detections come from the FIRMS area API, which serves CSV for a product,
// an area and a day range:
//
//	https://firms.modaps.eosdis.nasa.gov/api/area/csv/<MAP_KEY>/VIIRS_SNPP_NRT/world/1/2024-08-14
//
// Each request returns every row accumulated for the requested day so far, not
// a delta. Polling the same day repeatedly therefore returns a growing
// superset of the rows seen before.
//
// # FIRMS Data Conventions
//
// VIIRS columns (order as served):
//
//	latitude, longitude, bright_ti4, scan, track, acq_date, acq_time,
//	satellite, instrument, confidence, version, bright_ti5, frp, daynight
//
// Acquisition time:
//
//	acq_date is YYYY-MM-DD and acq_time is HHMM in UTC, e.g. "0412" = 04:12.
//	Three-digit values are zero-padded: "412" → "0412". Combined by [AcquiredAt].
//
// The package does not interpret any other column. Values are kept exactly as
// the feed served them.
//
// # Identity
//
// Two rows are the same detection when every feed-defined column is equal as
// text. The locally added time_first_downloaded column never takes part in
// identity. Rows are indexed by an xxh3 hash of the full field tuple and
// compared field by field on a hash match, see [Record].
//
// # Discovery Timestamps
//
// A row is stamped with time_first_downloaded exactly once, when [Merge] first
// sees it. The difference between that stamp and [AcquiredAt] is the
// detection latency the ingester exists to measure.
package domain
