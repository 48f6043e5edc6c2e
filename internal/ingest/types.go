package ingest

var imageMIMETypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"svg":  "image/svg+xml",
	"webp": "image/webp",
	"avif": "image/avif",
}

var documentMIMETypes = map[string]string{
	"pdf":  "application/pdf",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"doc":  "application/msword",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"xls":  "application/vnd.ms-excel",
	"pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"ppt":  "application/vnd.ms-powerpoint",
	"txt":  "text/plain",
	"html": "text/html",
	"htm":  "text/html",
	"md":   "text/markdown",
	"rtf":  "application/rtf",
	"odt":  "application/vnd.oasis.opendocument.text",
	"ods":  "application/vnd.oasis.opendocument.spreadsheet",
	"odp":  "application/vnd.oasis.opendocument.presentation",
}

// textExtensions are read as UTF-8 verbatim.
var textExtensions = setOf(
	"txt", "md", "markdown", "html", "htm", "css", "js", "jsx", "ts", "tsx", "json",
	"yaml", "yml", "sql", "ini", "toml", "xml", "dockerfile", "gitignore",
	"py", "pl", "sh", "rb", "vb", "ps1", "php", "java", "c", "cpp", "cxx", "cc",
	"h", "hpp", "hxx", "cs", "go", "rs", "swift", "kt", "scala", "r", "dart", "lua",
	"vim", "bat", "cmd", "conf", "config", "cfg", "env", "log", "csv", "tsv", "svg",
	"vue", "astro", "svelte", "scss", "sass", "less", "styl", "stylus", "postcss",
	"makefile", "cmake", "gradle", "maven", "pom", "sbt", "lock", "backup", "tmp", "temp",
)

var binaryFallbackExtensions = setOf("docx", "doc", "xlsx", "pptx")

func setOf(items ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, item := range items {
		out[item] = struct{}{}
	}
	return out
}

func isImage(ext string) bool {
	_, ok := imageMIMETypes[ext]
	return ok
}

func isText(ext string) bool {
	_, ok := textExtensions[ext]
	return ok
}

func binaryFallback(ext string) bool {
	_, ok := binaryFallbackExtensions[ext]
	return ok
}

func imageMIMEType(ext string) string {
	if mime, ok := imageMIMETypes[ext]; ok {
		return mime
	}
	return "image/jpeg"
}

func documentMIMEType(ext string) string {
	if mime, ok := documentMIMETypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}
