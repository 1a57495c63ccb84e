// Package mediatypes provides container extension handling shared by the
// policy, converter and batch packages.
//
// It has no dependencies beyond the standard library so it can be imported
// anywhere without creating import cycles.
//
// Extensions are always compared in lower case with the leading dot:
//
//	ext := mediatypes.Ext("/videos/Holiday.WMV") // ".wmv"
//	if mediatypes.NewExtSet(".wmv", ".avi").Has(ext) {
//	    // legacy container
//	}
package mediatypes
