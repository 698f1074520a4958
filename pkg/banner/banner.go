package banner

import (
	"fmt"

	"charchat/pkg/config"
)

const banner = `
 ██████╗██╗  ██╗ █████╗ ██████╗  ██████╗██╗  ██╗ █████╗ ████████╗
██╔════╝██║  ██║██╔══██╗██╔══██╗██╔════╝██║  ██║██╔══██╗╚══██╔══╝
██║     ███████║███████║██████╔╝██║     ███████║███████║   ██║
██║     ██╔══██║██╔══██║██╔══██╗██║     ██╔══██║██╔══██║   ██║
╚██████╗██║  ██║██║  ██║██║  ██║╚██████╗██║  ██║██║  ██║   ██║
 ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝╚═╝  ╚═╝ ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝   ╚═╝
`

// PrintWithEff prints the startup banner using an EffectiveConfigResult
// (config, addr, dbpath, source).
func PrintWithEff(eff config.EffectiveConfigResult, version string) {
	addr := eff.Addr
	if addr == "" && eff.Config != nil {
		addr = eff.Config.Addr()
	}
	dbPath := eff.DBPath
	if dbPath == "" && eff.Config != nil {
		dbPath = eff.Config.Server.DBPath
	}
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
	fmt.Printf("Config: %s\n", src)

	fmt.Println("\n== Endpoints ==================================================")
	fmt.Println("POST /v1/chat - Stream a completion (JSON: messages, systemPrompt)")
	fmt.Println("POST /v1/chats - Create a chat (JSON: user_id, character_id)")
	fmt.Println("GET  /v1/chats?user=<id> - List a user's chats by recency")
	fmt.Println("GET  /v1/chats/{id}/messages - List messages in a chat")
	fmt.Println("GET  /v1/chats/{id}/subscribe - Follow inserted messages (SSE)")
	fmt.Println("GET  /v1/characters - Character catalog")

	fmt.Println("\n== Production? =================================================")
	if eff.Config != nil && eff.Config.Completion.APIKey != "" {
		fmt.Println("- Completion API key: OK")
	} else {
		fmt.Println("- Completion API key: MISSING (set CHARCHAT_COMPLETION_API_KEY)")
	}
	model := ""
	if eff.Config != nil {
		model = eff.Config.Completion.Model
	}
	if model != "" {
		fmt.Printf("- Completion model: %s\n", model)
	} else {
		fmt.Println("- Completion model: default")
	}

	tlsOK := eff.Config != nil && eff.Config.Server.TLS.CertFile != "" && eff.Config.Server.TLS.KeyFile != ""
	if tlsOK {
		fmt.Println("- TLS: configured")
	} else {
		fmt.Println("- TLS: unconfigured")
	}

	if dbPath != "" {
		fmt.Printf("- DB Path: %s\n", dbPath)
	} else {
		fmt.Println("- DB Path: not set (use --db or CHARCHAT_DB_PATH)")
	}

	if eff.Config != nil && eff.Config.Retention.Enabled {
		cron := eff.Config.Retention.Cron
		if cron == "" {
			cron = "0 2 * * *"
		}
		fmt.Printf("- Retention: enabled (cron=%s)\n", cron)
	} else {
		fmt.Println("- Retention: disabled")
	}

	fmt.Println("\n== Logs: =================================================")
}
