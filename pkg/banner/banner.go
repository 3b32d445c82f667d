package banner

import (
	"fmt"

	"chathub/pkg/config"
)

const banner = `
 ██████╗██╗  ██╗ █████╗ ████████╗██╗  ██╗██╗   ██╗██████╗
██╔════╝██║  ██║██╔══██╗╚══██╔══╝██║  ██║██║   ██║██╔══██╗
██║     ███████║███████║   ██║   ███████║██║   ██║██████╔╝
██║     ██╔══██║██╔══██║   ██║   ██╔══██║██║   ██║██╔══██╗
╚██████╗██║  ██║██║  ██║   ██║   ██║  ██║╚██████╔╝██████╔╝
 ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝   ╚═╝   ╚═╝  ╚═╝ ╚═════╝ ╚═════╝
`

// PrintWithEff prints the startup banner with the effective runtime
// configuration.
func PrintWithEff(eff config.EffectiveConfigResult, version string) {
	addr := eff.Addr
	if addr == "" && eff.Config != nil {
		addr = eff.Config.Addr()
	}
	dbPath := eff.DBPath
	src := eff.Source
	if src == "" {
		src = "flags"
	}

	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", addr)
	fmt.Printf("DB Path:  %s\n", dbPath)
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	fmt.Printf("Config:   %s\n", src)
	if eff.Config != nil {
		fmt.Printf("Heartbeat: %dms, reconnect hint: %dms\n",
			eff.Config.Hub.HeartbeatMs, eff.Config.Hub.ReconnectDelayMs)
	}

	fmt.Println("\n== Endpoints ==================================================")
	fmt.Println("POST /v1/auth/register - Create an account")
	fmt.Println("POST /v1/auth/login    - Sign in, get a token pair")
	fmt.Println("POST /v1/conversations - Start a conversation")
	fmt.Println("POST /v1/messages/send - Send a message")
	fmt.Println("GET  /ws?token=<jwt>   - Realtime socket")

	fmt.Println("\n== Examples ===================================================")
	fmt.Printf("curl -X POST 'http://localhost%s/v1/auth/register' -d '{\"username\":\"alice\",\"password\":\"secret\"}'\n", addr)
	fmt.Printf("curl 'http://localhost%s/v1/conversations' -H 'Authorization: Bearer <token>'\n", addr)

	fmt.Println("\n== Production? =================================================")
	warn := false
	if eff.Config == nil || eff.Config.Auth.JWTSecret == "" {
		fmt.Println("Set auth.jwt_secret (or CHATHUB_JWT_SECRET)")
		warn = true
	}
	if eff.Config != nil && len(eff.Config.Security.CORS.AllowedOrigins) == 0 {
		fmt.Println("Configure security.cors.allowed_origins for browser clients")
		warn = true
	}
	if !warn {
		fmt.Println("Looks good.")
	}
	fmt.Println()
}
