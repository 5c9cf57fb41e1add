package elonet_archiver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	assert_ "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/alanbriolat/elonet-archiver/download"
	"github.com/alanbriolat/elonet-archiver/hls"
	"github.com/alanbriolat/elonet-archiver/internal/history"
	"github.com/alanbriolat/elonet-archiver/internal/web"
)

type fileMuxer struct {
	*os.File
}

func (m fileMuxer) Abort() {
	_ = m.Close()
}

func fileLauncher(_ context.Context, outputPath string) (download.Muxer, error) {
	f, err := os.Create(outputPath)
	if err != nil {
		return nil, err
	}
	return fileMuxer{f}, nil
}

type siteServer struct {
	*httptest.Server
	page     string
	missing  map[string]bool
	requests []string
}

// newSiteServer serves a video page, an embed page, a master playlist, a media playlist and its segments.
func newSiteServer(t *testing.T) *siteServer {
	s := &siteServer{missing: make(map[string]bool)}
	s.page = `<html><head><title>Ignored</title></head><body>
		<h1 property="name">Film: Part 1</h1>
		<span id="video-data" data-video-sources='[{"src":"{{URL}}/video.mp4","type":"video/mp4"},{"src":"{{URL}}/embed","type":"application/x-mpegURL"}]'></span>
	</body></html>`
	mux := http.NewServeMux()
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, strings.ReplaceAll(s.page, "{{URL}}", s.URL))
	})
	mux.HandleFunc("/embed", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><script>player.load({"hls": "%s/hls/master.m3u8"});</script></html>`, s.URL)
	})
	mux.HandleFunc("/hls/master.m3u8", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=500000\nlow.m3u8\n#EXT-X-STREAM-INF:BANDWIDTH=2000000\nhigh.m3u8\n")
	})
	mux.HandleFunc("/hls/high.m3u8", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "#EXTM3U\n#EXT-X-TARGETDURATION:10\n#EXTINF:10.0,\nseg0.ts\n#EXTINF:10.0,\nseg1.ts\n#EXTINF:10.0,\nseg2.ts\n#EXT-X-ENDLIST\n")
	})
	mux.HandleFunc("/hls/", func(w http.ResponseWriter, r *http.Request) {
		name := filepath.Base(r.URL.Path)
		if s.missing[name] || !strings.HasSuffix(name, ".ts") {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, "[%s]", name)
	})
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests = append(s.requests, r.URL.Path)
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

func pipelineRegistry(t *testing.T) *ProviderRegistry {
	r := &ProviderRegistry{}
	require.NoError(t, r.Add(Provider{
		Name:  "test",
		Site:  SiteElonetPlus,
		Match: AnyHost,
		Extractor: ExtractorFunc(func(doc *goquery.Document) (VideoSource, error) {
			source, err := FirstOf(doc, Probe[string]{Name: "video-data", Run: HLSSourceFromAttr("span#video-data", "data-video-sources")})
			if err != nil {
				return VideoSource{}, err
			}
			return VideoSource{Title: SanitizeTitle(Text(doc, `h1[property="name"]`).UnwrapOr(""), "video.mp4"), SourceURL: source}, nil
		}),
	}))
	return r
}

func newTestPipeline(t *testing.T, opts ...PipelineOption) (*Pipeline, string, history.Store) {
	dir := t.TempDir()
	store, err := history.Open(filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	target := NewTargetConfig()
	target.TargetDir = filepath.Join(dir, "videos")
	opts = append([]PipelineOption{
		WithRegistry(pipelineRegistry(t)),
		WithTarget(target),
		WithHistory(store),
		WithDownloadOptions(download.WithLauncher(fileLauncher)),
	}, opts...)
	return NewPipeline(web.New(), opts...), target.TargetDir, store
}

func TestPipeline_Run(t *testing.T) {
	assert := assert_.New(t)
	srv := newSiteServer(t)
	var progress []download.Progress
	p, dir, store := newTestPipeline(t, WithDownloadOptions(download.WithProgress(func(pr download.Progress) {
		progress = append(progress, pr)
	})))

	ctx := WithLogger(context.Background(), zaptest.NewLogger(t))
	outcome, err := p.Run(ctx, srv.URL+"/page")
	require.NoError(t, err)

	assert.Equal("test", outcome.Match.ProviderName)
	assert.Equal("Film_ Part 1.mp4", outcome.Video.Title)
	assert.Equal(srv.URL+"/embed", outcome.Video.SourceURL)
	assert.Equal(srv.URL+"/hls/master.m3u8", outcome.PlaylistURL)
	assert.Equal(srv.URL+"/hls/high.m3u8", outcome.Playlist.URL)
	assert.NotContains(srv.requests, "/hls/low.m3u8")
	assert.Len(progress, 3)

	outputPath := filepath.Join(dir, "Film_ Part 1.mp4")
	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	assert.Equal("[seg0.ts][seg1.ts][seg2.ts]", string(data))
	assert.True(outcome.Result.Complete())

	records, err := store.List()
	require.NoError(t, err)
	require.Len(t, records, 1)
	record := records[0]
	assert.Equal(history.StatusComplete, record.Status)
	assert.Equal(srv.URL+"/page", record.PageURL)
	assert.Equal(string(SiteElonetPlus), record.Site)
	assert.Equal(outputPath, record.OutputPath)
	assert.Equal(3, record.Segments)
	assert.Empty(record.Dropped)
	assert.False(record.FinishedAt.IsZero())
}

func TestPipeline_DroppedSegment(t *testing.T) {
	assert := assert_.New(t)
	srv := newSiteServer(t)
	srv.missing["seg1.ts"] = true
	p, dir, store := newTestPipeline(t)

	outcome, err := p.Run(context.Background(), srv.URL+"/page")
	require.NoError(t, err)
	assert.Equal([]int{1}, outcome.Result.Dropped)
	data, err := os.ReadFile(filepath.Join(dir, "Film_ Part 1.mp4"))
	require.NoError(t, err)
	assert.Equal("[seg0.ts][seg2.ts]", string(data))

	records, err := store.List()
	require.NoError(t, err)
	assert.Equal(history.StatusPartial, records[0].Status)
	assert.Equal([]int{1}, records[0].Dropped)
}

func TestPipeline_FailOnMissing(t *testing.T) {
	srv := newSiteServer(t)
	srv.missing["seg2.ts"] = true
	p, _, store := newTestPipeline(t, WithFailOnMissing(true))

	_, err := p.Run(context.Background(), srv.URL+"/page")
	assert_.ErrorIs(t, err, ErrMissingSegments)
	records, err := store.List()
	require.NoError(t, err)
	assert_.Equal(t, history.StatusFailed, records[0].Status)
	assert_.NotEmpty(t, records[0].Error)
}

func TestPipeline_AllSegmentsMissing(t *testing.T) {
	srv := newSiteServer(t)
	for _, name := range []string{"seg0.ts", "seg1.ts", "seg2.ts"} {
		srv.missing[name] = true
	}
	p, _, _ := newTestPipeline(t)
	_, err := p.Run(context.Background(), srv.URL+"/page")
	assert_.ErrorIs(t, err, ErrDownloadFailed)
}

func TestPipeline_ExtractionError(t *testing.T) {
	assert := assert_.New(t)
	srv := newSiteServer(t)
	srv.page = `<html><body><h1 property="name">No video here</h1></body></html>`
	p, _, store := newTestPipeline(t)

	outcome, err := p.Run(context.Background(), srv.URL+"/page")
	var extractionErr *ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.Equal(SiteElonetPlus, extractionErr.Site)
	assert.NotNil(outcome.Match)
	assert.Nil(outcome.Result)

	records, err := store.List()
	require.NoError(t, err)
	assert.Equal(history.StatusFailed, records[0].Status)
}

func TestPipeline_ResolutionError(t *testing.T) {
	srv := newSiteServer(t)
	srv.page = `<span id="video-data" data-video-sources='[{"src":"{{URL}}/missing","type":"application/x-mpegURL"}]'></span>`
	p, _, _ := newTestPipeline(t)

	_, err := p.Run(context.Background(), srv.URL+"/page")
	var resolutionErr *hls.ResolutionError
	assert_.ErrorAs(t, err, &resolutionErr)
}

func TestPipeline_PageNotFound(t *testing.T) {
	srv := newSiteServer(t)
	p, _, _ := newTestPipeline(t)
	_, err := p.Run(context.Background(), srv.URL+"/nope")
	var statusErr *web.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert_.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestPipeline_UnknownProvider(t *testing.T) {
	p, _, store := newTestPipeline(t, WithProviderName("nope"))
	_, err := p.Run(context.Background(), "https://elonetplus.fi/x")
	assert_.ErrorIs(t, err, ErrUnknownProvider)
	records, err := store.List()
	require.NoError(t, err)
	assert_.Equal(t, history.StatusFailed, records[0].Status)
}
