package flags

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
)

const (
	// Env vars
	EnvVarProjectDir   = "ALMD_PROJECT_DIR"
	EnvVarManifestFile = "ALMD_MANIFEST"
	EnvVarLockFile     = "ALMD_LOCKFILE"
	EnvVarLogPath      = "ALMD_LOG_PATH"
	EnvVarLogLevel     = "ALMD_LOG_LEVEL"
	EnvVarGitHubAPIURL = "ALMD_GITHUB_API_URL"
	EnvVarCacheDir     = "ALMD_CACHE_DIR"
	EnvVarGitHubToken  = "GITHUB_TOKEN"
	EnvVarInstallDir   = "ALMD_INSTALL_DIR"

	// Defaults
	DefaultProjectDir   = "."
	DefaultManifestFile = "project.toml"
	DefaultLockFile     = "almd-lock.toml"
	DefaultLogPath      = ""
	DefaultLogLevel     = "info"
	DefaultGitHubAPIURL = "https://api.github.com"

	// Flag names
	FlagNameProjectDir   = "project-dir"
	FlagNameManifestFile = "manifest"
	FlagNameLockFile     = "lockfile"
	FlagNameLogPath      = "log-path"
	FlagNameLogLevel     = "log-level"
	FlagNameVerbose      = "verbose"
	FlagNameGitHubAPIURL = "github-api-url"
	FlagNameCacheDir     = "cache-dir"
	FlagNameNoCache      = "no-cache"
)

var (
	ProjectDir   string
	ManifestFile string
	LockFile     string
	LogPath      string
	LogLevel     string
	Verbose      bool
	GitHubAPIURL string
	CacheDir     string
	NoCache      bool
)

func InitFlags(fs *pflag.FlagSet) {
	initProject(fs)
	initLogger(fs)
	initNetwork(fs)
}

// ManifestPath is the manifest file, resolved against the project directory unless absolute.
func ManifestPath() string {
	return resolve(ManifestFile, DefaultManifestFile)
}

// LockfilePath is the lockfile, resolved against the project directory unless absolute.
func LockfilePath() string {
	return resolve(LockFile, DefaultLockFile)
}

// ProjectRoot is the directory dependency paths are relative to.
func ProjectRoot() string {
	if strings.TrimSpace(ProjectDir) == "" {
		return DefaultProjectDir
	}
	return ProjectDir
}

// GitHubToken returns the token sent to the GitHub API, if any.
func GitHubToken() string {
	return strings.TrimSpace(os.Getenv(EnvVarGitHubToken))
}

func resolve(file string, fallback string) string {
	if strings.TrimSpace(file) == "" {
		file = fallback
	}
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(ProjectRoot(), file)
}

// fromEnv returns the trimmed value of envVar, or fallback when it is unset or blank.
func fromEnv(envVar string, fallback string) string {
	if env := strings.TrimSpace(os.Getenv(envVar)); env != "" {
		return env
	}
	return fallback
}

func initProject(fs *pflag.FlagSet) {
	if ProjectDir == "" {
		ProjectDir = fromEnv(EnvVarProjectDir, DefaultProjectDir)
	}
	fs.StringVar(&ProjectDir, FlagNameProjectDir, ProjectDir, "project root that dependency paths are relative to")

	if ManifestFile == "" {
		ManifestFile = fromEnv(EnvVarManifestFile, DefaultManifestFile)
	}
	fs.StringVar(&ManifestFile, FlagNameManifestFile, ManifestFile, "manifest file, relative to the project root")

	if LockFile == "" {
		LockFile = fromEnv(EnvVarLockFile, DefaultLockFile)
	}
	fs.StringVar(&LockFile, FlagNameLockFile, LockFile, "lockfile, relative to the project root")
}

func initLogger(fs *pflag.FlagSet) {
	if LogPath == "" {
		LogPath = fromEnv(EnvVarLogPath, DefaultLogPath)
	}
	fs.StringVar(&LogPath, FlagNameLogPath, LogPath, "path to generated log file")

	if LogLevel == "" {
		LogLevel = strings.ToLower(fromEnv(EnvVarLogLevel, DefaultLogLevel))
	}
	fs.StringVar(&LogLevel, FlagNameLogLevel, LogLevel, "log level for almd logs (trace, debug, info, warn, error, off)")

	fs.BoolVar(&Verbose, FlagNameVerbose, Verbose, "also write debug logs to stderr")
}

func initNetwork(fs *pflag.FlagSet) {
	if GitHubAPIURL == "" {
		GitHubAPIURL = fromEnv(EnvVarGitHubAPIURL, DefaultGitHubAPIURL)
	}
	fs.StringVar(&GitHubAPIURL, FlagNameGitHubAPIURL, GitHubAPIURL, "base URL of the GitHub REST API")

	if CacheDir == "" {
		CacheDir = fromEnv(EnvVarCacheDir, "")
	}
	fs.StringVar(&CacheDir, FlagNameCacheDir, CacheDir, "directory for cached commit-pinned downloads")

	fs.BoolVar(&NoCache, FlagNameNoCache, NoCache, "always download, bypassing the content cache")
}
