package marriott

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"marriott_mcp/internal/domain"
)

func TestCookieJar_MergeKeepsFirstSeenOrderLastValue(t *testing.T) {
	jar := NewCookieJar()
	jar.Merge([]string{"a=1; Path=/; HttpOnly", "b=2"})
	jar.Merge([]string{"a=3; Secure", "c=; Path=/", "=nameless", "garbage"})

	assert.Equal(t, 3, jar.Len())
	assert.Equal(t, "a=3; b=2; c=", jar.Header())
	v, ok := jar.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "3", v)
}

func TestCookieJar_EmptyHeader(t *testing.T) {
	assert.Equal(t, "", NewCookieJar().Header())
}

func TestRetryAfter(t *testing.T) {
	h := func(v string) http.Header {
		hd := http.Header{}
		if v != "" {
			hd.Set("Retry-After", v)
		}
		return hd
	}
	assert.Equal(t, time.Duration(0), retryAfter(h("")))
	assert.Equal(t, 5*time.Second, retryAfter(h("5")))
	assert.Equal(t, 2*time.Second, retryAfter(h("2, 30")))
	assert.Equal(t, time.Duration(0), retryAfter(h("soon")))

	future := time.Now().Add(90 * time.Second).UTC().Format(http.TimeFormat)
	d := retryAfter(h(future))
	assert.Greater(t, d, 80*time.Second)
	assert.LessOrEqual(t, d, 90*time.Second)
}

func TestIsChallenge(t *testing.T) {
	assert.True(t, isChallenge([]byte(`{"cpr_chlge":true}`)))
	assert.True(t, isChallenge([]byte(`{"cpr_chlge":"true"}`)))
	assert.False(t, isChallenge([]byte(`{"cpr_chlge":"false"}`)))
	assert.False(t, isChallenge([]byte(`<html></html>`)))
	assert.False(t, isChallenge([]byte(`{"errors":[]}`)))
}

func TestBackoffGrowsWithJitterBound(t *testing.T) {
	for i := 0; i < 4; i++ {
		base := time.Duration(1<<i) * 200 * time.Millisecond
		d := backoff(i)
		assert.GreaterOrEqual(t, d, base)
		assert.LessOrEqual(t, d, base+base/2)
	}
}

func TestSearchVariables_DefaultPriceEndpoints(t *testing.T) {
	vars := searchVariables(domain.HotelSearchRequest{Guests: 1, Rooms: 1, Limit: 5})
	ranges := vars["search"].(map[string]any)["facets"].(map[string]any)["ranges"].([]map[string]any)
	assert.Equal(t, []string{"0", "100", "200", "overflow"}, ranges[0]["endpoints"])
	assert.Equal(t, []string{"0", "4830", "14520", "80470"}, ranges[1]["endpoints"])
	assert.Equal(t, []string{"HOTEL_MARKETING_CAPTION"}, vars["filter"])
}
