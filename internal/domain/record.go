package domain

// Record is a single upstream document. It is serialized as one JSON object
// inside the delivered array.
type Record map[string]any
