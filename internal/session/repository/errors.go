package repository

import "errors"

// ErrDuplicateSession is returned by Create when the id already exists.
var ErrDuplicateSession = errors.New("session already exists")
