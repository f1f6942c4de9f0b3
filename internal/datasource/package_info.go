// Package datasource implements the two ways a datafile reaches an Instance: a single HTTP
// GET against a configured URL (requestor.go, polling_data_source.go) and an optional
// file-on-disk load with fsnotify-driven hot-reload (file.go). Both are transport only;
// parsing a fetched payload into a *datafile.Datafile is datafile.ParseJSON's job.
package datasource
