// Package mail abstracts outbound email delivery.
//
// Callers compose a Message and hand it to the Mail interface. Whether it
// leaves through SMTP or is only written to the application log is decided by
// which implementation is wired in at startup.
package mail
