package runner

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/samber/lo"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/infracollect/epubshrink/internal/engine"
	"github.com/infracollect/epubshrink/internal/engine/transform"
)

const (
	inputPath  = "/books/in.epub"
	outputPath = "/books/out.epub"
	contentOPF = `<?xml version="1.0"?><package version="3.0"><manifest/></package>`
)

type fixtureEntry struct {
	name string
	data []byte
}

func buildEPUB(t *testing.T, entries ...fixtureEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	w, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	require.NoError(t, err)
	_, err = w.Write([]byte("application/epub+zip"))
	require.NoError(t, err)

	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.name, Method: zip.Store})
		require.NoError(t, err)
		_, err = w.Write(e.data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: uint8(x + y), A: 255})
		}
	}
	return img
}

func jpegFixture(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, gradient(w, h), &jpeg.Options{Quality: 95}))
	return buf.Bytes()
}

func pngFixture(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, gradient(w, h)))
	return buf.Bytes()
}

func newFs(t *testing.T, data []byte) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, inputPath, data, 0644))
	return fs
}

func openZip(t *testing.T, data []byte) *zip.Reader {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	return zr
}

func readEntry(t *testing.T, f *zip.File) []byte {
	t.Helper()
	rc, err := f.Open()
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return data
}

func shrink(t *testing.T, fs afero.Fs, opts Options, runnerOpts ...Option) *engine.Report {
	t.Helper()
	r, err := New(zap.NewNop(), opts, append([]Option{WithFs(fs)}, runnerOpts...)...)
	require.NoError(t, err)
	report, err := r.Run(t.Context())
	require.NoError(t, err)
	return report
}

func options(input, output string) Options {
	opts := DefaultOptions()
	opts.Input = input
	opts.Output = output
	return opts
}

func TestRun_ShrinksCoverImage(t *testing.T) {
	input := buildEPUB(t,
		fixtureEntry{"content.opf", []byte(contentOPF)},
		fixtureEntry{"images/cover.jpg", jpegFixture(t, 800, 1200)},
	)
	fs := newFs(t, input)

	opts := options(inputPath, outputPath)
	opts.Transform.JPEGQuality = 50
	opts.Transform.MaxWidth = lo.ToPtr(400)

	report := shrink(t, fs, opts)

	output, err := afero.ReadFile(fs, outputPath)
	require.NoError(t, err)
	zr := openZip(t, output)

	names := lo.Map(zr.File, func(f *zip.File, _ int) string { return f.Name })
	assert.Equal(t, []string{"mimetype", "content.opf", "images/cover.jpg"}, names)

	assert.Equal(t, zip.Store, zr.File[0].Method)
	assert.Equal(t, "application/epub+zip", string(readEntry(t, zr.File[0])))

	assert.Equal(t, zip.Deflate, zr.File[1].Method)
	assert.Equal(t, contentOPF, string(readEntry(t, zr.File[1])))

	assert.Equal(t, zip.Deflate, zr.File[2].Method)
	cfg, format, err := image.DecodeConfig(bytes.NewReader(readEntry(t, zr.File[2])))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 400, cfg.Width)
	assert.Equal(t, 600, cfg.Height)

	assert.Equal(t, 1, report.Count(engine.ActionTransformed))
	assert.Equal(t, 2, report.Count(engine.ActionCopied))
	assert.Equal(t, int64(len(input)), report.InputSize)
	assert.Equal(t, int64(len(output)), report.OutputSize)
	assert.Greater(t, report.Reduction(), 0.0)
}

func TestRun_CorruptImageIsCopied(t *testing.T) {
	broken := jpegFixture(t, 64, 64)[:100]
	input := buildEPUB(t,
		fixtureEntry{"images/broken.jpg", broken},
		fixtureEntry{"images/fine.png", pngFixture(t, 32, 32)},
	)
	fs := newFs(t, input)

	report := shrink(t, fs, options(inputPath, outputPath))

	output, err := afero.ReadFile(fs, outputPath)
	require.NoError(t, err)
	zr := openZip(t, output)
	require.Len(t, zr.File, 3)
	assert.Equal(t, broken, readEntry(t, zr.File[1]))

	fallbacks := report.Fallbacks()
	require.Len(t, fallbacks, 1)
	assert.Equal(t, "images/broken.jpg", fallbacks[0].Name)
	assert.NotEmpty(t, fallbacks[0].Reason)
	assert.Equal(t, 1, report.Count(engine.ActionTransformed))
}

func TestRun_Grayscale(t *testing.T) {
	input := buildEPUB(t, fixtureEntry{"images/plate.png", pngFixture(t, 40, 20)})
	fs := newFs(t, input)

	opts := options(inputPath, outputPath)
	opts.Transform.Grayscale = true
	shrink(t, fs, opts)

	output, err := afero.ReadFile(fs, outputPath)
	require.NoError(t, err)
	zr := openZip(t, output)

	img, err := png.Decode(bytes.NewReader(readEntry(t, zr.File[1])))
	require.NoError(t, err)
	assert.IsType(t, &image.Gray{}, img)
	assert.Equal(t, image.Rect(0, 0, 40, 20), img.Bounds())
}

func TestRun_ResizedGrayJPEGStaysGray(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 200, 100))
	for i := range gray.Pix {
		gray.Pix[i] = uint8(i % 199)
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, gray, &jpeg.Options{Quality: 90}))

	fs := newFs(t, buildEPUB(t, fixtureEntry{"images/scan.jpg", buf.Bytes()}))

	opts := options(inputPath, outputPath)
	opts.Transform.MaxWidth = lo.ToPtr(100)
	shrink(t, fs, opts)

	output, err := afero.ReadFile(fs, outputPath)
	require.NoError(t, err)
	zr := openZip(t, output)

	img, err := jpeg.Decode(bytes.NewReader(readEntry(t, zr.File[1])))
	require.NoError(t, err)
	assert.IsType(t, &image.Gray{}, img)
	assert.Equal(t, image.Rect(0, 0, 100, 50), img.Bounds())
}

func TestRun_MisplacedMimetypeKeepsOrder(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range []string{"content.opf", "mimetype"} {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		require.NoError(t, err)
		_, err = w.Write([]byte(lo.Ternary(name == "mimetype", "application/epub+zip", contentOPF)))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	fs := newFs(t, buf.Bytes())

	shrink(t, fs, options(inputPath, outputPath))

	output, err := afero.ReadFile(fs, outputPath)
	require.NoError(t, err)
	zr := openZip(t, output)

	names := lo.Map(zr.File, func(f *zip.File, _ int) string { return f.Name })
	methods := lo.Map(zr.File, func(f *zip.File, _ int) uint16 { return f.Method })
	assert.Equal(t, []string{"content.opf", "mimetype"}, names)
	assert.Equal(t, []uint16{zip.Deflate, zip.Store}, methods)
}

func TestRun_OutputDirectoryKeepsInputName(t *testing.T) {
	fs := newFs(t, buildEPUB(t))
	require.NoError(t, fs.MkdirAll("/shrunk", 0755))

	r, err := New(zap.NewNop(), options(inputPath, "/shrunk"), WithFs(fs))
	require.NoError(t, err)
	assert.Equal(t, "/shrunk/in.epub", r.Destination())

	_, err = r.Run(t.Context())
	require.NoError(t, err)

	exists, err := afero.Exists(fs, "/shrunk/in.epub")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRun_Stdout(t *testing.T) {
	fs := newFs(t, buildEPUB(t, fixtureEntry{"chapter.xhtml", []byte("<html/>")}))

	var stdout bytes.Buffer
	report := shrink(t, fs, options(inputPath, "-"), WithStdout(&stdout))

	zr := openZip(t, stdout.Bytes())
	require.Len(t, zr.File, 2)
	assert.Equal(t, "<html/>", string(readEntry(t, zr.File[1])))
	assert.Equal(t, int64(stdout.Len()), report.OutputSize)
}

type recordingUploader struct {
	bucket      string
	key         string
	contentType string
	body        []byte
}

func (u *recordingUploader) Upload(_ context.Context, input *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	body, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	u.bucket = *input.Bucket
	u.key = *input.Key
	u.contentType = lo.FromPtr(input.ContentType)
	u.body = body
	return &manager.UploadOutput{}, nil
}

func TestRun_S3(t *testing.T) {
	fs := newFs(t, buildEPUB(t))
	uploader := &recordingUploader{}

	shrink(t, fs, options(inputPath, "s3://library/shrunk/"), WithS3Uploader(uploader))

	assert.Equal(t, "library", uploader.bucket)
	assert.Equal(t, "shrunk/in.epub", uploader.key)
	assert.Equal(t, "application/epub+zip", uploader.contentType)
	assert.Len(t, openZip(t, uploader.body).File, 1)
}

func TestRun_NotAnArchive(t *testing.T) {
	fs := newFs(t, []byte("definitely not a zip file"))

	r, err := New(zap.NewNop(), options(inputPath, outputPath), WithFs(fs))
	require.NoError(t, err)

	_, err = r.Run(t.Context())
	var archiveErr *engine.ArchiveError
	require.ErrorAs(t, err, &archiveErr)
	assert.Equal(t, "open", archiveErr.Op)

	exists, err := afero.Exists(fs, outputPath)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRun_CancelledLeavesNoOutput(t *testing.T) {
	fs := newFs(t, buildEPUB(t, fixtureEntry{"content.opf", []byte(contentOPF)}))

	r, err := New(zap.NewNop(), options(inputPath, outputPath), WithFs(fs))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err = r.Run(ctx)
	var archiveErr *engine.ArchiveError
	require.ErrorAs(t, err, &archiveErr)
	assert.True(t, errors.Is(err, context.Canceled))

	exists, err := afero.Exists(fs, outputPath)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestNew_MissingInput(t *testing.T) {
	_, err := New(zap.NewNop(), options("/books/missing.epub", outputPath), WithFs(afero.NewMemMapFs()))
	var archiveErr *engine.ArchiveError
	require.ErrorAs(t, err, &archiveErr)
	assert.Equal(t, "/books/missing.epub", archiveErr.Path)
}

func TestNew_ConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
	}{
		{
			name:   "output equals input",
			modify: func(o *Options) { o.Output = inputPath },
		},
		{
			name:   "output equals input after cleaning",
			modify: func(o *Options) { o.Output = "/books/../books/in.epub" },
		},
		{
			name:   "missing output",
			modify: func(o *Options) { o.Output = "" },
		},
		{
			name:   "missing input",
			modify: func(o *Options) { o.Input = "" },
		},
		{
			name:   "jpeg quality zero",
			modify: func(o *Options) { o.Transform.JPEGQuality = 0 },
		},
		{
			name:   "jpeg quality above 100",
			modify: func(o *Options) { o.Transform.JPEGQuality = 101 },
		},
		{
			name:   "percent above 100",
			modify: func(o *Options) { o.Transform.ResizePercent = lo.ToPtr(150.0) },
		},
		{
			name:   "zero max width",
			modify: func(o *Options) { o.Transform.MaxWidth = lo.ToPtr(0) },
		},
		{
			name: "percent and max width",
			modify: func(o *Options) {
				o.Transform.ResizePercent = lo.ToPtr(50.0)
				o.Transform.MaxWidth = lo.ToPtr(400)
			},
		},
		{
			name:   "unknown resample",
			modify: func(o *Options) { o.Transform.Resample = transform.Resample("SINC") },
		},
		{
			name:   "negative concurrency",
			modify: func(o *Options) { o.Concurrency = -1 },
		},
		{
			name:   "S3 URL without bucket",
			modify: func(o *Options) { o.Output = "s3:///key.epub" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := newFs(t, buildEPUB(t))
			opts := options(inputPath, outputPath)
			tt.modify(&opts)

			_, err := New(zap.NewNop(), opts, WithFs(fs))
			var configErr *engine.ConfigError
			require.ErrorAs(t, err, &configErr)
		})
	}
}

func TestResolveDestination(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/out", 0755))

	tests := []struct {
		name   string
		output string
		want   destination
	}{
		{
			name:   "file path",
			output: "/out/small.epub",
			want:   destination{dir: "/out", name: "small.epub"},
		},
		{
			name:   "existing directory",
			output: "/out",
			want:   destination{dir: "/out", name: "in.epub"},
		},
		{
			name:   "stdout",
			output: "-",
			want:   destination{stdout: true, name: "in.epub"},
		},
		{
			name:   "s3 key",
			output: "s3://bucket/books/small.epub",
			want:   destination{bucket: "bucket", prefix: "books", name: "small.epub"},
		},
		{
			name:   "s3 prefix keeps input name",
			output: "s3://bucket/books/",
			want:   destination{bucket: "bucket", prefix: "books", name: "in.epub"},
		},
		{
			name:   "s3 bucket root",
			output: "s3://bucket",
			want:   destination{bucket: "bucket", name: "in.epub"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveDestination(fs, inputPath, tt.output)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
