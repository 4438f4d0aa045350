// Package clock abstracts the time source.
//
// Challenge expiry and rate windows are all computed against a Clocker so
// tests can pin time instead of sleeping.
package clock
