// Package wire defines the messages exchanged between a guest and its host
// and the dynamically-typed value tree they carry.
//
// Every payload is a tree of mappings, sequences, strings, numbers, booleans
// and null. After decoding, that tree is made of plain Go values:
//
//	Null     : nil
//	Bool     : bool
//	Number   : int64, uint64, float64 (other widths are accepted on input)
//	String   : string
//	Sequence : []any
//	Mapping  : map[string]any (Map)
//
// KindOf classifies a value, and the As* helpers convert a value into a
// concrete Go type or report a *ConversionError. Nothing in this package
// reinterprets a value without checking its kind first.
//
// Message shapes
//
//	Envelope        : {context, inputs}                 host -> guest, once
//	CallRequest     : {type:"call", function, inputs, id} guest -> host
//	call_result     : {type, id, result?, error?}        host -> guest
//	RespondMessage  : {type:"respond", context}          guest -> host, once
package wire
