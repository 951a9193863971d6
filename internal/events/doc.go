// Package events defines the task lifecycle events emitted on every successful
// task mutation, their wire encoding, and the interfaces used to publish and
// handle them.
//
// The primary components are:
// - TaskEvent: the immutable event envelope shared by all four event kinds
// - Publisher: implemented by anything that can deliver a TaskEvent (e.g. the broker)
// - EventHandler: implemented by downstream consumers of TaskEvents
// - Dispatcher: an in-process fan-out from one event to many handlers
package events
