package graph

// StateSchemaTyped defines the initial state and the update logic for a
// StateGraph[S]. Node functions return updates; the schema folds each update
// into the current state.
type StateSchemaTyped[S any] interface {
	// Init returns the initial state.
	Init() S

	// Update merges the new update into the current state.
	Update(current, update S) (S, error)
}

// StructSchema implements StateSchemaTyped for struct states with a merge
// function.
type StructSchema[S any] struct {
	InitialValue S
	MergeFunc    func(current, update S) (S, error)
}

// NewStructSchema creates a new StructSchema. A nil merge function makes each
// update replace the state.
func NewStructSchema[S any](initial S, merge func(current, update S) (S, error)) *StructSchema[S] {
	return &StructSchema[S]{
		InitialValue: initial,
		MergeFunc:    merge,
	}
}

// Init returns the initial value.
func (s *StructSchema[S]) Init() S {
	return s.InitialValue
}

// Update merges the update into current using MergeFunc.
func (s *StructSchema[S]) Update(current, update S) (S, error) {
	if s.MergeFunc == nil {
		return update, nil
	}
	return s.MergeFunc(current, update)
}

// AppendSlice returns a fresh slice holding current followed by update.
// Reducers use it so merged states never share backing arrays with the
// updates they were built from.
func AppendSlice[T any](current, update []T) []T {
	if len(update) == 0 {
		return current
	}
	out := make([]T, 0, len(current)+len(update))
	out = append(out, current...)
	return append(out, update...)
}
