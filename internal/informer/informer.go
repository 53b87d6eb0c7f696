// Package informer wraps the client-go shared informer machinery behind a
// uniform per-type cache: list, get-by-key, event handler registration, and a
// readiness bit that turns true once the initial list has completed. The
// reconciler gates on readiness and skips a pass rather than acting on a cold
// cache.
package informer

import (
	toolscache "k8s.io/client-go/tools/cache"
)

// Informer is a read view over a single watched resource type.
type Informer[T any] struct {
	name     string
	informer toolscache.SharedIndexInformer
}

// Wrap adapts a shared index informer. The name is used in diagnostics only.
func Wrap[T any](name string, informer toolscache.SharedIndexInformer) *Informer[T] {
	return &Informer[T]{name: name, informer: informer}
}

// Name identifies the wrapped resource type.
func (i *Informer[T]) Name() string {
	return i.name
}

// HasSynced reports whether the initial list has completed.
func (i *Informer[T]) HasSynced() bool {
	return i.informer.HasSynced()
}

// List returns all cached objects.
func (i *Informer[T]) List() []T {
	items := i.informer.GetStore().List()
	out := make([]T, 0, len(items))
	for _, item := range items {
		if typed, ok := item.(T); ok {
			out = append(out, typed)
		}
	}
	return out
}

// ListNamespace returns the cached objects in the given namespace.
func (i *Informer[T]) ListNamespace(namespace string) []T {
	items, err := i.informer.GetIndexer().ByIndex(toolscache.NamespaceIndex, namespace)
	if err != nil {
		return nil
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		if typed, ok := item.(T); ok {
			out = append(out, typed)
		}
	}
	return out
}

// GetByKey looks up a cached object by namespace and name. Cluster-scoped
// types pass an empty namespace.
func (i *Informer[T]) GetByKey(namespace, name string) (T, bool) {
	var zero T
	key := name
	if namespace != "" {
		key = namespace + "/" + name
	}
	obj, exists, err := i.informer.GetStore().GetByKey(key)
	if err != nil || !exists {
		return zero, false
	}
	typed, ok := obj.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// AddEventHandler registers add/update/delete callbacks. Handlers run on the
// informer's dispatch goroutine and must not block it.
func (i *Informer[T]) AddEventHandler(handler toolscache.ResourceEventHandler) error {
	_, err := i.informer.AddEventHandler(handler)
	return err
}
