// Package version 빌드 시점에 주입된 버전 정보와 실행 환경 정보를 제공합니다.
//
// 버전 변수는 링커 플래그로 주입합니다.
//
//	go build -ldflags "-X github.com/darkkaiser/aliexpress-link-bot/internal/pkg/version.appVersion=v1.2.0 ..."
//
// 주입되지 않은 값은 실행 파일의 VCS 메타데이터(debug.ReadBuildInfo)로 보강합니다.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const unknown = "unknown"

// 링커 플래그(-ldflags -X)로 주입되는 값입니다. 직접 읽지 말고 Get()을 사용합니다.
var (
	appVersion    = ""
	gitCommitHash = ""
	gitTreeState  = ""
	buildDate     = ""
	buildNumber   = ""
)

// readBuildInfo 테스트에서 교체할 수 있도록 변수로 선언합니다.
var readBuildInfo = debug.ReadBuildInfo

var (
	once   sync.Once
	cached Info
)

// Info 빌드 및 실행 환경 정보입니다.
type Info struct {
	Version     string `json:"version"`
	Commit      string `json:"commit"`
	BuildDate   string `json:"build_date"`
	BuildNumber string `json:"build_number"`
	GoVersion   string `json:"go_version"`
	OS          string `json:"os"`
	Arch        string `json:"arch"`
	DirtyBuild  bool   `json:"dirty_build"`
}

// Get 빌드 정보를 반환합니다. 최초 호출 시 한 번만 계산합니다.
func Get() Info {
	once.Do(func() {
		cached = resolve(Info{
			Version:     strings.TrimSpace(appVersion),
			Commit:      strings.TrimSpace(gitCommitHash),
			BuildDate:   strings.TrimSpace(buildDate),
			BuildNumber: strings.TrimSpace(buildNumber),
			DirtyBuild:  strings.EqualFold(strings.TrimSpace(gitTreeState), "dirty"),
		})
	})
	return cached
}

// resolve 비어있는 항목을 실행 환경과 VCS 메타데이터로 채웁니다.
func resolve(bi Info) Info {
	bi.GoVersion = runtime.Version()
	bi.OS = runtime.GOOS
	bi.Arch = runtime.GOARCH

	if info, ok := readBuildInfo(); ok {
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if bi.Commit == "" {
					bi.Commit = s.Value
				}
			case "vcs.time":
				if bi.BuildDate == "" {
					bi.BuildDate = s.Value
				}
			case "vcs.modified":
				bi.DirtyBuild = bi.DirtyBuild || s.Value == "true"
			}
		}
		if bi.Version == "" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			bi.Version = info.Main.Version
		}
	}

	for _, field := range []*string{&bi.Version, &bi.Commit, &bi.BuildDate} {
		if *field == "" {
			*field = unknown
		}
	}

	return bi
}

// ShortCommit 커밋 해시의 앞 7자리를 반환합니다.
func (i Info) ShortCommit() string {
	if len(i.Commit) > 7 {
		return i.Commit[:7]
	}
	return i.Commit
}

// String 버전 정보를 한 줄로 요약합니다. (예: "v1.2.0+dirty (commit: f25b8bf, build: 42, go1.24.0 linux/amd64)")
func (i Info) String() string {
	v := i.Version
	if i.DirtyBuild {
		v += "+dirty"
	}

	var details []string
	if i.Commit != "" && i.Commit != unknown {
		details = append(details, "commit: "+i.ShortCommit())
	}
	if i.BuildNumber != "" {
		details = append(details, "build: "+i.BuildNumber)
	}
	if i.GoVersion != "" {
		details = append(details, fmt.Sprintf("%s %s/%s", i.GoVersion, i.OS, i.Arch))
	}

	if len(details) == 0 {
		return v
	}
	return fmt.Sprintf("%s (%s)", v, strings.Join(details, ", "))
}

// Fields 구조적 로깅에 사용할 필드 맵을 반환합니다.
func (i Info) Fields() map[string]any {
	return map[string]any{
		"version":      i.Version,
		"commit":       i.Commit,
		"build_date":   i.BuildDate,
		"build_number": i.BuildNumber,
		"go_version":   i.GoVersion,
		"dirty_build":  i.DirtyBuild,
	}
}

// RegisterMetrics 빌드 정보를 값이 항상 1인 build_info 게이지로 reg에 등록합니다.
func RegisterMetrics(reg prometheus.Registerer, i Info) error {
	gauge := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "aliexpress_link_bot_build_info",
			Help: "Build information of the running binary (always 1)",
		},
		[]string{"version", "commit", "go_version"},
	)
	if err := reg.Register(gauge); err != nil {
		return err
	}

	gauge.WithLabelValues(i.Version, i.ShortCommit(), i.GoVersion).Set(1)
	return nil
}
