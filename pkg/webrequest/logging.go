package webrequest

import (
	"github.com/mandelsoft/logging"
)

var REALM = logging.DefineRealm("webrequest", "web request listener multiplexer")
