// Package workspace manages the scoped temporary working directory of the
// main obfuscation pipeline. The directory is created as a sibling of the
// source tree and removed on every exit path.
package workspace
