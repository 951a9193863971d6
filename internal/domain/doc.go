// Package domain contains the core business entities and domain errors of the
// application, independent of any specific store or broker.
package domain
