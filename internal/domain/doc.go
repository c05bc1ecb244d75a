// Package domain models the balloon constellation feed and the geometry
// computed from it.
//
// # Data Source
//
// The upstream feed publishes one JSON snapshot per hour offset, addressed as
// 00.json through 23.json, where 00 is the current constellation state and NN
// is the state N hours ago. Each snapshot is a JSON array whose element at
// index i describes balloon i as a numeric tuple:
//
//	[latitude, longitude, altitude_km, ...]
//
// Elements may be null, truncated, or otherwise corrupted; the feed uses the
// all-zero triple [0, 0, 0] as its "no data" sentinel. Invalid elements are
// skipped record-by-record, never treated as fatal.
//
// # Identity
//
// Balloons carry no identifier of their own. A balloon's ID is the string form
// of its array index, under the assumption that the feed keeps array order
// stable hour to hour. If the feed ever reorders, histories would silently
// merge unrelated balloons. This is a known consistency risk; it is documented
// here rather than papered over with guessed correlation semantics, and should
// be replaced with an explicit key if the feed ever provides one.
//
// # Distance Heuristics
//
// Cumulative track distance uses the haversine formula on consecutive hourly
// fixes. A segment only counts toward the total when its longitude delta is
// under 180 degrees and its length is under 2000 km. Both thresholds are
// inherited upstream heuristics against corrupted fixes and antimeridian
// artifacts (no balloon covers 2000 km in an hour); they are preserved as-is.
//
// # Hazards
//
// Weather hazards arrive as a GeoJSON-like FeatureCollection of Polygon or
// MultiPolygon features with free-form properties (event, severity, headline,
// effective, expires). Vertices are (longitude, latitude) pairs, in that
// order. Containment uses a standard ray-casting test against each outer ring.
package domain
