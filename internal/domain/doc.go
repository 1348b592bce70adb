// Package domain defines the scheduler's entities: tasks, named time
// segments and schedules.
//
// Values here are plain data. Identifiers are assigned by the gateway, never
// by callers, which is why creation requests (NewTask, NewTimeSegment) have
// no ID field at all.
package domain
