// Package archive keeps timestamped copies of rig documents alongside an
// SQLite index so any calibration or resampling can be rolled back. Blob
// copies live under the configured archive directory; the index records
// which operation produced each revision and whether the revision carried
// low-confidence vertices.
package archive
