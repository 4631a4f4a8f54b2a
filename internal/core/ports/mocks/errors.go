package mocks

import "errors"

// ErrEmployeeExists is returned when an employee id is inserted twice.
var ErrEmployeeExists = errors.New("employee already exists")
