// Package calendar_tools provides the get_calendar_events tool, which lists
// upcoming events of the user's primary Google Calendar.
package calendar_tools
