package bridge

import (
	"github.com/mandelsoft/logging"
)

var REALM = logging.DefineRealm("webrequest/bridge", "websocket host bridge")

var log = logging.DynamicLogger(logging.DefaultContext(), REALM)
