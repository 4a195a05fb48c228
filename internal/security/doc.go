// Package security derives a read-only posture report from engine settings.
//
// # What this package must NOT do
//
//   - Import gateAuth or perform I/O; callers pass plain values in.
package security
