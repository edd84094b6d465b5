package bcolz

// ObjectCodec is the host-provided pair of functions spec.md §6 calls
// the "Consumer interface for the opaque-element path": the core treats
// Object-kind elements as opaque byte strings of unknown length, one per
// chunk, and relies on the host to serialize/deserialize them.
type ObjectCodec interface {
	Serialize(value any) ([]byte, error)
	Deserialize(data []byte) (any, error)
}

// AppendValue serializes value with codec and appends it as a new
// one-element chunk, per spec.md §4.4's "O-kind bypasses the tail" rule.
func (ca *CArray) AppendValue(codec ObjectCodec, value any) error {
	data, err := codec.Serialize(value)
	if err != nil {
		return err
	}
	return ca.AppendObject(data)
}

// ValueAt decompresses the Object-kind chunk at logical index i and
// deserializes it with codec.
func (ca *CArray) ValueAt(codec ObjectCodec, i int) (any, error) {
	c, err := ca.store.Get(i)
	if err != nil {
		return nil, err
	}
	data, err := c.GetObject(ca.reg)
	if err != nil {
		return nil, err
	}
	return codec.Deserialize(data)
}

// Evaluator is the host-provided hook spec.md §6 calls the "Consumer
// interface for string-predicate indexing": given an expression string
// and the array it applies to, it returns a dense boolean mask of
// length ca.Len(). The core never parses expressions itself.
type Evaluator func(expression string, ca *CArray) ([]bool, error)

// WhereExpr delegates expression to eval, then iterates the resulting
// mask exactly as Where does.
func (ca *CArray) WhereExpr(expression string, eval Evaluator, skip, limit int) (*WhereIter, error) {
	mask, err := eval(expression, ca)
	if err != nil {
		return nil, err
	}
	return ca.Where(mask, skip, limit)
}
