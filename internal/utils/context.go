// Package utils provides shared utility functions and constants
package utils

// ContextKeySession is the key used to store the session in the echo context
const ContextKeySession = "session"
