// Package persist provides state.Store backends. JSONStore keeps one small
// file per account; SQLiteStore keeps every account in a single database.
package persist
