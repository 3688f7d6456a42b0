// Package filters implements the PDF stream filters used when writing
// overlay content.
//
// FlateEncode produces zlib-wrapped data, which is what the FlateDecode
// filter expects in a stream dictionary:
//
//	encoded, err := filters.FlateEncode(content)
//	stream := &core.Stream{
//	    Dict: core.Dict{"Filter": core.Name("FlateDecode")},
//	    Data: encoded,
//	}
//
// FlateDecode reverses it:
//
//	decoded, err := filters.FlateDecode(stream.Data)
package filters
