package util

import (
	"fmt"
	"os/exec"
	"runtime"
)

// linux 下 xdg-open 失败后依次尝试
var linuxBrowsers = []string{"google-chrome", "firefox", "chromium-browser", "sensible-browser"}

// LocalURL 本机服务地址
func LocalURL(port int) string {
	return fmt.Sprintf("http://localhost:%d", port)
}

// BrowserCommands 按优先级返回打开 url 的候选命令
func BrowserCommands(goos, url string) [][]string {
	switch goos {
	case "windows":
		// rundll32 调用 url.dll 在 Windows 7 上比 cmd /c start 稳定
		return [][]string{
			{"rundll32", "url.dll,FileProtocolHandler", url},
			{"explorer", url},
		}
	case "darwin":
		return [][]string{{"open", url}}
	default:
		cmds := [][]string{{"xdg-open", url}}
		for _, b := range linuxBrowsers {
			cmds = append(cmds, []string{b, url})
		}
		return cmds
	}
}

// OpenBrowser 打开默认浏览器，逐个尝试候选命令
func OpenBrowser(url string) error {
	var lastErr error
	for _, argv := range BrowserCommands(runtime.GOOS, url) {
		if err := exec.Command(argv[0], argv[1:]...).Start(); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("no browser could be started: %w", lastErr)
}
