// Package codec implements per-field decoding and encoding of query values.
//
// Three encodings exist:
//   - scalar: one converted value, "pageSize=30"
//   - multi: separator-delimited list, "page=1;2;3"
//   - binary boolean vector: booleans packed LSB-first into one decimal
//     integer, "openToggles=60" is [false,false,true,true,true,true]
//
// Decoding never fails with an error. An unusable raw value yields an
// invalid Result carrying the field's default and a reason string, and the
// caller decides how to correct the URL.
package codec
