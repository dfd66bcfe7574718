// Package store persists detection runs in a SQLite database.
//
// A run is created by a batch detection and holds the detected features in
// their batch order. Tracking the run attaches the filtered trajectories and
// the tracking parameters that produced them, so a later export can redraw
// them without re-linking.
//
// Only one process may open a store at a time; a second Open returns
// ErrLocked while the first holds the lock file next to the database.
package store
