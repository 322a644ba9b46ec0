// Package notifications delivers run reports over SMTP email with the
// generated artifacts attached. When email delivery is disabled the
// service degrades to a noop so the pipeline never depends on it.
package notifications
