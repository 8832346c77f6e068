package protocol

type FieldType uint

const (
	FieldAny = iota
	FieldTree
	FieldBinary
	FieldNull
	FieldBool
	FieldInt
	FieldUint
	FieldFloat
	FieldString
	FieldArray
)

const (
	OK        = 0  // ok response
	ERROR     = 1  // error response
	HANDSHAKE = 2  // version selection
	GET       = 3  // materialize value at path
	FIND      = 4  // resolve node at path
	CHILDREN  = 5  // list children nodes of path
	INIT      = 6  // initialize tree
	UPDATE    = 7  // replace value at path
	DELETE    = 8  // delete path
	DISPATCH  = 9  // dispatch action
	DESCRIBE  = 10 // tree descriptor
)
