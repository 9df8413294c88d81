package main

import (
	"fmt"
	"os"

	"github.com/darkkaiser/aliexpress-link-bot/internal/config"
	"github.com/spf13/cobra"
)

// @title AliExpress Link Bot
// @version 1.0.0
// @description AliExpress 상품 링크를 제휴 링크가 포함된 메시지로 변환하는 텔레그램 봇의 웹훅 서버입니다.
// @description
// @description 텔레그램은 설정된 웹훅 주소(webhook_url/<bot_token>)로 업데이트를 전달합니다.
// @description 경로의 토큰이 봇 토큰과 일치하는 JSON 요청만 처리합니다.

// @contact.name DarkKaiser
// @contact.url https://github.com/darkkaiser

// @BasePath /

const banner = `
     _    _ _ _     _       _      ____        _
    / \  | (_) |   (_)_ __ | | __ | __ )  ___ | |_
   / _ \ | | | |   | | '_ \| |/ / |  _ \ / _ \| __|
  / ___ \| | | |___| | | | |   <  | |_) | (_) | |_
 /_/   \_\_|_|_____|_|_| |_|_|\_\ |____/ \___/ \__|
                                            %s
                                   developed by DarkKaiser
--------------------------------------------------------------------------------
`

var configFile string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// 로거 초기화 전에 실패할 수 있으므로 표준 에러에 출력합니다.
		fmt.Fprintf(os.Stderr, "[FATAL] %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	serve := newServeCmd()

	rootCmd := &cobra.Command{
		Use:           config.AppName,
		Short:         "AliExpress 제휴 링크 텔레그램 봇",
		Long:          "메시지에 포함된 AliExpress 상품 링크를 해석하여 가격 정보와 제휴 링크로 응답하는 텔레그램 봇입니다.",
		RunE:          serve.RunE,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("설정 파일 경로 (기본값: %s, 없으면 환경 변수만 사용)", config.DefaultFilename))

	rootCmd.AddCommand(serve, newPollCmd(), newLookupCmd(), newVersionCmd())

	return rootCmd
}
