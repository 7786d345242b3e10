package digest

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/lifesciencesignals/radar/internal/mail"
)

const emptyField = "—"

var digestTemplate = template.Must(template.New("digest").Funcs(template.FuncMap{
	"orDash": func(s string) string {
		if s == "" {
			return emptyField
		}
		return s
	},
	"day": func(t time.Time) string {
		return t.UTC().Format(time.DateOnly)
	},
}).Parse(`<div style="font-family:Arial;max-width:720px;margin:0 auto;padding:18px;">
  <h2 style="margin:0 0 6px 0;">{{.Brand}} — Daily Digest</h2>
  <div class="meta" style="color:#555;margin-bottom:14px;">
    Org: <b class="org">{{.Org}}</b> · Filter: <b class="filter">{{.Filter}}</b>
  </div>
  {{- range .Items}}
  <div class="account" style="border:1px solid #eee;border-radius:12px;padding:14px;margin:12px 0;">
    <div style="display:flex;justify-content:space-between;gap:12px;">
      <div>
        <div class="name" style="font-size:16px;font-weight:700;">{{.Account.Name}}</div>
        <div class="where" style="color:#555;margin-top:4px;">{{orDash .Account.Segment}} · {{orDash .Account.Country}}</div>
      </div>
      <div style="text-align:right;">
        <div class="score" style="font-size:20px;font-weight:800;">{{.Score}}</div>
        <div style="color:#777;">Buying pressure</div>
      </div>
    </div>
    <div style="margin-top:10px;">
      <div style="font-weight:700;margin-bottom:6px;">Recent signals (7 days)</div>
      <ul style="margin:0;padding-left:18px;">
        {{- range .Signals}}
        <li class="signal"><b class="title">{{.Title}}</b><br/><span style="color:#555">{{.Type}} · {{day .OccurredAt}} · strength {{.StrengthScore}}</span></li>
        {{- else}}
        <li>—</li>
        {{- end}}
      </ul>
    </div>
  </div>
  {{- end}}
  <div style="color:#777;margin-top:16px;font-size:12px;">
    You're receiving this because email alerts are enabled for your daily digest filter.
  </div>
</div>
`))

// Subject returns the digest email subject
func Subject(brand, filterName string) string {
	return fmt.Sprintf("%s Daily Digest — %s", brand, filterName)
}

// Render turns a prepared digest into an email. Every interpolated value
// is HTML-escaped.
func Render(d *Digest, brand string) (mail.Message, error) {
	if d.Filter == nil {
		return mail.Message{}, fmt.Errorf("digest for %s has no filter", d.Org.ID)
	}

	var buf bytes.Buffer
	err := digestTemplate.Execute(&buf, map[string]interface{}{
		"Brand":  brand,
		"Org":    d.Org.Name,
		"Filter": d.Filter.Name,
		"Items":  d.Items,
	})
	if err != nil {
		return mail.Message{}, fmt.Errorf("failed to render digest: %w", err)
	}

	return mail.Message{
		To:      d.Recipients,
		Subject: Subject(brand, d.Filter.Name),
		HTML:    buf.String(),
	}, nil
}
