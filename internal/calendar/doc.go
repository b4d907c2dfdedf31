// Package calendar provides a read-only client for the Google Calendar API,
// used by the agent to look up upcoming events on the primary calendar.
package calendar
