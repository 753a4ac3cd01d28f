package common

import (
	"reflect"

	"github.com/bytedance/sonic"
	"github.com/bytedance/sonic/option"
)

// SonicCfg mirrors encoding/json behaviour (sorted map keys, invalid UTF-8
// replaced) so echoed documents are deterministic for identical requests.
var SonicCfg sonic.API

func init() {
	SonicCfg = sonic.Config{
		EscapeHTML:       true,
		SortMapKeys:      true,
		CompactMarshaler: true,
		CopyString:       true,
		ValidateString:   true,
	}.Froze()

	err := sonic.Pretouch(
		reflect.TypeOf(echoDocumentWithJwt{}),
		option.WithCompileMaxInlineDepth(1),
	)
	if err != nil {
		panic(err)
	}
}
