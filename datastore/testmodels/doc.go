// Package testmodels holds the entities shared by storage tests.
package testmodels
