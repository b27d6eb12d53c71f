package control

import (
	"github.com/mandelsoft/logging"
)

var REALM = logging.DefineRealm("webrequest/control", "control API")

var log = logging.DynamicLogger(logging.DefaultContext(), REALM)
