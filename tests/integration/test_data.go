package integration

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// ContactForm builds a valid form post whose fields are unique per suffix
func ContactForm(suffix, csrfToken string, loadedAt time.Time) url.Values {
	ts := time.Now().Unix()
	form := url.Values{}
	form.Set("name", "Test Visitor "+suffix)
	form.Set("email", fmt.Sprintf("visitor-%d-%s@example.com", ts, suffix))
	form.Set("subject", "Integration "+suffix)
	form.Set("message", "Hello from the integration suite, run "+suffix+".")
	form.Set("form_time", strconv.FormatInt(loadedAt.UnixMilli(), 10))
	form.Set("csrf_token", csrfToken)
	form.Set("website", "")
	return form
}
