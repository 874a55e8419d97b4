package config

const (
	defaultStateDir       = "~/.local/share/librarian"
	defaultLogDir         = "~/.local/share/librarian/logs"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultBackupSuffix   = ".bak"
	defaultTempSuffix     = ".partial"
	defaultMoviePattern   = "{title} ({year}){ext}"
	defaultEpisodePattern = "{title} S{season}E{episode}{ext}"
	defaultTargetExt      = ".mkv"
	defaultLanguage       = "en"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Tools: Tools{
			FFmpeg:      "ffmpeg",
			FFprobe:     "ffprobe",
			Mkvmerge:    "mkvmerge",
			Mkvpropedit: "mkvpropedit",
		},
		Scan: Scan{
			MediaExtensions:    []string{".mkv", ".mp4", ".m4v", ".avi", ".mov", ".wmv", ".ts", ".m2ts", ".webm"},
			SubtitleExtensions: []string{".srt", ".idx", ".sub"},
			SkipPatterns:       []string{".*", "@eaDir", "lost+found"},
			IgnorePatterns:     []string{"*.part", "*.partial", "*.bak", "Thumbs.db", ".DS_Store"},
		},
		Naming: Naming{
			MoviePattern:   defaultMoviePattern,
			EpisodePattern: defaultEpisodePattern,
			DeletePatterns: []string{"*.nfo", "*.txt", "*.url", "RARBG*.exe"},
			TitleCase:      true,
		},
		Convert: Convert{
			Enabled:          true,
			SourceExtensions: []string{".avi", ".mp4", ".m4v"},
			TargetExtension:  defaultTargetExt,
		},
		Merge: Merge{
			Enabled:       true,
			Languages:     []string{defaultLanguage},
			MediaLanguage: defaultLanguage,
			UILanguage:    defaultLanguage,
			FixedTracks:   []int{0, 1},
		},
		Queue: Queue{
			BackupSuffix:         defaultBackupSuffix,
			TempSuffix:           defaultTempSuffix,
			KeepAncillaryBackups: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
