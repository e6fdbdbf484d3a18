package naver

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/korean"
)

const itemPage = `<html><head><meta charset="utf-8">
<meta property="og:title" content="삼성전자 : 네이버페이 증권"></head>
<body><div class="wrap_company"><h2><a href="#">삼성전자</a></h2></div></body></html>`

func TestParseItemName(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{"company header", itemPage, "삼성전자", false},
		{"og title fallback", `<html><head><meta property="og:title" content="SK하이닉스 : 네이버페이 증권"></head></html>`, "SK하이닉스", false},
		{"missing", `<html><body></body></html>`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseItemName([]byte(tt.body))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNameNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseItemName_EUCKR(t *testing.T) {
	page := `<html><head><meta charset="euc-kr"></head><body><div class="wrap_company"><h2><a>현대차</a></h2></div></body></html>`
	encoded, err := korean.EUCKR.NewEncoder().String(page)
	require.NoError(t, err)

	got, err := parseItemName([]byte(encoded))
	require.NoError(t, err)
	assert.Equal(t, "현대차", got)
}

func TestResolveName_Caches(t *testing.T) {
	var hits int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "/item/main.naver", r.URL.Path)
		assert.Equal(t, "005930", r.URL.Query().Get("code"))
		w.Write([]byte(itemPage))
	})

	for i := 0; i < 3; i++ {
		name, err := client.ResolveName(context.Background(), "005930")
		require.NoError(t, err)
		assert.Equal(t, "삼성전자", name)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}
