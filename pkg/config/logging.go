package config

import (
	"github.com/mandelsoft/logging"
)

var REALM = logging.DefineRealm("webrequest/config", "daemon configuration")

var log = logging.DynamicLogger(logging.DefaultContext(), REALM)
