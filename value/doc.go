// Package value holds the dynamic, caller-side representation of values
// crossing the native boundary.
//
// Value is a closed sum type. Scalars are named Go types (Bool, U8 ... F64,
// Char, String); compound values are Struct, Enum, Variant, List and Handle.
// A data-enum Variant carries only the fields of its active case, so reading
// another case's payload is not expressible.
//
// Of and Assign map between Values and ordinary Go values by reflection:
//
//	v, err := value.Of(basicStruct, BasicStruct{Foo: 1, Bar: "x", Baz: true})
//	var out BasicStruct
//	err = value.Assign(basicStruct, v, &out)
//
// Types that need custom mapping, such as typed data-enum glue, implement
// Valuer and Scanner.
package value
