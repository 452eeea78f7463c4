// Package cache implements the named, versioned disk stores behind the cache
// strategy router. Each store is a directory under StoragePath; entries are
// addressed by request key (path + query or absolute URL) and laid out as
// <store>/<sha1[:2]>/<sha1> with a .meta JSON sidecar carrying the key, status
// and headers. Writes go through a temp file + rename so readers never observe
// partial bodies. Whole stores are listed and dropped during activation and
// sweeping when the site version changes.
package cache
