// Package mocks provides centralized mock implementations for testing.
//
// Each mock has a function field per interface method. When a field is set it
// decides the result; otherwise the mock falls back to a simple in-memory
// behavior, so most tests only override the one method they care about.
//
//	taskStore := mocks.NewMockTaskStore()
//	taskStore.ReplaceFn = func(ctx context.Context, task *domain.Task) error {
//	    return store.ErrStoreUnavailable
//	}
package mocks
