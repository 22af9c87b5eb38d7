// Package google holds the pieces shared by the Google API backed adapters:
// per-request token sources and the mapping of googleapi errors onto the
// application error taxonomy.
package google
