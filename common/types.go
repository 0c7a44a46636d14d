package common

import "github.com/golang/glog"

// Verbosity levels for glog
const (
	SHORT   glog.Level = 4
	DEBUG   glog.Level = 6
	VERBOSE glog.Level = 7
)
