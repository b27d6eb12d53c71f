package webrequest_test

import (
	"encoding/json"

	"github.com/go-test/deep"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	. "github.com/mandelsoft/webrequest/pkg/testutils"

	me "github.com/mandelsoft/webrequest/pkg/webrequest"
)

var _ = Describe("record", func() {
	data := `{"id":7,"url":"https://example.com/","method":"POST","requestHeaders":{"Accept":"*/*"},"webContentsId":3,"uploadData":[{"bytes":"YQ=="}]}`

	It("keeps unknown fields", func() {
		var rec me.Record
		MustBeSuccessful(json.Unmarshal([]byte(data), &rec))

		Expect(deep.Equal(rec, me.Record{
			ID:             7,
			URL:            "https://example.com/",
			Method:         "POST",
			RequestHeaders: map[string]string{"Accept": "*/*"},
			Extra: map[string]any{
				"webContentsId": float64(3),
				"uploadData":    []any{map[string]any{"bytes": "YQ=="}},
			},
		})).To(BeNil())

		Expect(Must(json.Marshal(rec))).To(MatchJSON(data))
	})

	It("passes unknown fields to the forwarded decision", func() {
		var rec me.Record
		MustBeSuccessful(json.Unmarshal([]byte(data), &rec))

		d := rec.Forward()
		Expect(Must(json.Marshal(d))).To(MatchJSON(`{"cancel":false,"requestHeaders":{"Accept":"*/*"},"webContentsId":3,"uploadData":[{"bytes":"YQ=="}]}`))

		d.RequestHeaders["Accept"] = "text/html"
		Expect(rec.RequestHeaders["Accept"]).To(Equal("*/*"))
	})

	It("does not let extra fields override known ones", func() {
		d := me.Decision{Cancel: true, Extra: map[string]any{"cancel": false, "other": "x"}}
		Expect(Must(json.Marshal(d))).To(MatchJSON(`{"cancel":true,"other":"x"}`))
	})

	It("decodes decisions", func() {
		var d me.Decision
		MustBeSuccessful(json.Unmarshal([]byte(`{"cancel":true,"redirectURL":"https://x.org/","responseHeaders":{"Set-Cookie":["a","b"]}}`), &d))
		Expect(deep.Equal(d, me.Decision{
			Cancel:          true,
			RedirectURL:     "https://x.org/",
			ResponseHeaders: map[string][]string{"Set-Cookie": {"a", "b"}},
		})).To(BeNil())
	})

	It("copies deeply", func() {
		rec := &me.Record{
			URL:             "https://example.com/",
			ResponseHeaders: map[string][]string{"A": {"1"}},
		}
		c := rec.Copy()
		c.ResponseHeaders["A"][0] = "2"
		Expect(rec.ResponseHeaders["A"]).To(Equal([]string{"1"}))
	})
})
