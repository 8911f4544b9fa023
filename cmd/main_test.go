package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/pathbench/internal/registry"
	"github.com/smartystreets/goconvey/convey"
)

func execute(args ...string) (string, error) {
	var out, errOut bytes.Buffer
	cmd := rootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAnalyzeCommand(t *testing.T) {
	convey.Convey("Given a recorded event stream", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "events.jsonl")
		data := `{"id":"1","vendor":"direct","q":"a","timestamp":"2026-01-01T00:00:00Z","ok":true,"timings":{"total":100},"topK":["x"]}
{"id":"2","vendor":"p1","q":"a","timestamp":"2026-01-01T00:00:01Z","ok":true,"timings":{"total":120},"topK":["x"]}
`
		convey.So(os.WriteFile(path, []byte(data), 0o600), convey.ShouldBeNil)

		convey.Convey("When analyzing it", func() {
			out, err := execute("analyze", path)

			convey.Convey("Then a summary for both vendors is printed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "VENDOR")
				convey.So(out, convey.ShouldContainSubstring, "direct")
				convey.So(out, convey.ShouldContainSubstring, "p1")
			})
		})

		convey.Convey("When analyze gets no files", func() {
			_, err := execute("analyze")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestRunCommand(t *testing.T) {
	convey.Convey("Given a vendors file without vendors", t, func() {
		dir := t.TempDir()
		vendors := filepath.Join(dir, "vendors.json")
		convey.So(os.WriteFile(vendors, []byte(`{}`), 0o600), convey.ShouldBeNil)

		convey.Convey("When running", func() {
			_, err := execute("run", "--vendors", vendors, "--output", dir)

			convey.Convey("Then the command fails with the registry error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, registry.ErrNoVendors.Error())
			})
		})
	})

	convey.Convey("Given a configuration file that does not parse", t, func() {
		dir := t.TempDir()
		cfgPath := filepath.Join(dir, "bad.yaml")
		convey.So(os.WriteFile(cfgPath, []byte("plateaus: [1, 2\n"), 0o600), convey.ShouldBeNil)

		convey.Convey("Then every command fails before running", func() {
			_, err := execute("--config", cfgPath, "run")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}
