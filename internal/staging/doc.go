// Package staging finds and removes leftover extraction buffers: directories
// named <target><suffix> (".out_tmp" by default) that a crashed or failed job
// left beside its target.
package staging
