package rules

import (
	"github.com/mandelsoft/logging"
)

var REALM = logging.DefineRealm("webrequest/rules", "declarative listener rules")

var log = logging.DynamicLogger(logging.DefaultContext(), REALM)
