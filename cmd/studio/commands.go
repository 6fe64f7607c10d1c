package main

import (
	"encoding/json"
	"fmt"
	"image"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	"github.com/bananafashion/studio/internal/album"
	"github.com/bananafashion/studio/internal/config"
	"github.com/bananafashion/studio/internal/render"
	"github.com/bananafashion/studio/internal/transform"
)

// --- crop ---

var cropCmd = &cobra.Command{
	Use:   "crop <input>",
	Short: "Center-crop an image to an aspect ratio",
	Long: `Center-crop an image to an aspect ratio.

Examples:
  studio crop photo.jpg --aspect 4:5 -o cropped.jpg
  studio crop photo.png --aspect 1:1`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		aspectStr, _ := cmd.Flags().GetString("aspect")
		output, _ := cmd.Flags().GetString("output")

		aspect, err := parseAspect(aspectStr)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		cropped, err := transform.CenterCrop(data, aspect)
		if err != nil {
			return fmt.Errorf("cropping: %w", err)
		}

		if output == "" {
			output = outputName(args[0], "_cropped")
		}
		if err := os.WriteFile(output, cropped, 0o644); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}

		printSuccess("Cropped to %s", output)
		return nil
	},
}

// --- resize ---

var resizeCmd = &cobra.Command{
	Use:   "resize <input>",
	Short: "Resize an image",
	Long: `Resize an image. With only --width, the aspect ratio is preserved;
with both --width and --height, the image is cover-fitted and cropped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		width, _ := cmd.Flags().GetInt("width")
		height, _ := cmd.Flags().GetInt("height")
		output, _ := cmd.Flags().GetString("output")

		if width <= 0 {
			return fmt.Errorf("--width is required and must be positive")
		}

		src, err := imaging.Open(args[0])
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		var resized image.Image
		if height > 0 {
			resized = transform.CoverFit(src, width, height)
		} else {
			resized = imaging.Resize(src, width, 0, imaging.Lanczos)
		}

		data, err := transform.EncodeJPEG(resized, 90)
		if err != nil {
			return fmt.Errorf("encoding: %w", err)
		}

		if output == "" {
			output = outputName(args[0], "_resized")
		}
		if err := os.WriteFile(output, data, 0o644); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}

		printSuccess("Resized to %s", output)
		return nil
	},
}

func init() {
	cropCmd.Flags().String("aspect", "4:5", "target aspect ratio (w:h)")
	cropCmd.Flags().StringP("output", "o", "", "output file path")
	resizeCmd.Flags().Int("width", 0, "target width in pixels")
	resizeCmd.Flags().Int("height", 0, "target height in pixels (optional)")
	resizeCmd.Flags().StringP("output", "o", "", "output file path")
}

func parseAspect(s string) (float64, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid aspect %q, expected w:h", s)
	}
	w, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil || w <= 0 {
		return 0, fmt.Errorf("invalid aspect width in %q", s)
	}
	h, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || h <= 0 {
		return 0, fmt.Errorf("invalid aspect height in %q", s)
	}
	return w / h, nil
}

func outputName(input, suffix string) string {
	base := strings.TrimSuffix(input, ".png")
	base = strings.TrimSuffix(base, ".jpg")
	base = strings.TrimSuffix(base, ".jpeg")
	base = strings.TrimSuffix(base, ".webp")
	return base + suffix + ".jpg"
}

// --- compose ---

var composeCmd = &cobra.Command{
	Use:   "compose",
	Short: "Render composite canvases from images",
}

var composeGridCmd = &cobra.Command{
	Use:   "grid <img1> <img2> <img3> <img4>",
	Short: "Render a titled 2x2 grid page",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		styles, _ := cmd.Flags().GetString("styles")
		output, _ := cmd.Flags().GetString("output")

		styleList := splitList(styles)
		images := make([]render.GridImage, len(args))
		for i, path := range args {
			images[i] = render.GridImage{URL: path}
			if i < len(styleList) {
				images[i].Style = styleList[i]
			}
		}

		jpeg, err := render.NewRenderer().GridPage(cmd.Context(), images, title)
		if err != nil {
			return err
		}
		return writeComposite(jpeg, output, title)
	},
}

var composeStripCmd = &cobra.Command{
	Use:   "strip <img> [img...]",
	Short: "Render a dynamic strip of images",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		jpeg, err := render.NewRenderer().DynamicStrip(cmd.Context(), args)
		if err != nil {
			return err
		}
		return writeComposite(jpeg, output, "strip")
	},
}

var composeProcessCmd = &cobra.Command{
	Use:   "process <final> <step> [step...]",
	Short: "Render a hero image with its generation steps",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		labels, _ := cmd.Flags().GetString("labels")
		output, _ := cmd.Flags().GetString("output")

		labelList := splitList(labels)
		steps := make([]render.StepImage, len(args)-1)
		for i, path := range args[1:] {
			steps[i] = render.StepImage{URL: path}
			if i < len(labelList) {
				steps[i].Label = labelList[i]
			}
		}

		jpeg, err := render.NewRenderer().ProcessAlbum(cmd.Context(), args[0], steps)
		if err != nil {
			return err
		}
		return writeComposite(jpeg, output, "process")
	},
}

var composeCompositionCmd = &cobra.Command{
	Use:   "composition <final>",
	Short: "Render a final look with its source materials",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		person, _ := cmd.Flags().GetString("person")
		items, _ := cmd.Flags().GetString("items")
		moodboard, _ := cmd.Flags().GetString("moodboard")
		output, _ := cmd.Flags().GetString("output")

		jpeg, err := render.NewRenderer().CompositionAlbum(cmd.Context(), args[0], person, splitList(items), moodboard)
		if err != nil {
			return err
		}
		return writeComposite(jpeg, output, "composition")
	},
}

var composeBoutiqueCmd = &cobra.Command{
	Use:   "boutique <img1> <img2> <img3> <img4>",
	Short: "Render a boutique collection page",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		source, _ := cmd.Flags().GetString("source")
		output, _ := cmd.Flags().GetString("output")

		jpeg, err := render.NewRenderer().BoutiqueAlbum(cmd.Context(), args, source, title)
		if err != nil {
			return err
		}
		return writeComposite(jpeg, output, title)
	},
}

func init() {
	composeGridCmd.Flags().String("title", "", "grid title")
	composeGridCmd.Flags().String("styles", "", "comma-separated style badges, one per image")
	composeProcessCmd.Flags().String("labels", "", "comma-separated step labels")
	composeCompositionCmd.Flags().String("person", "", "person image path or URL")
	composeCompositionCmd.Flags().String("items", "", "comma-separated fashion item paths")
	composeCompositionCmd.Flags().String("moodboard", "", "moodboard image path or URL")
	composeBoutiqueCmd.Flags().String("title", "", "collection title")
	composeBoutiqueCmd.Flags().String("source", "", "source of inspiration image")

	for _, c := range []*cobra.Command{composeGridCmd, composeStripCmd, composeProcessCmd, composeCompositionCmd, composeBoutiqueCmd} {
		c.Flags().StringP("output", "o", "", "output file path")
		composeCmd.AddCommand(c)
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func writeComposite(jpeg []byte, output, title string) error {
	if output == "" {
		output = render.Filename(title, time.Now().UTC())
	}
	if err := os.WriteFile(output, jpeg, 0o644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	printSuccess("Composite saved to %s", output)
	return nil
}

// --- album ---

var albumCmd = &cobra.Command{
	Use:   "album",
	Short: "Build magazine-style PDF albums",
}

var albumBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Queue an album build on the studio server",
	Long: `Queue an album build on the studio server.

Examples:
  studio album build --file request.json --wait
  studio album build --theme "Spring Looks" --cover cover.jpg --page look1.jpg --page look2.jpg --wait`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		wait, _ := cmd.Flags().GetBool("wait")

		var req album.Request
		if file != "" {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading request file: %w", err)
			}
			if err := json.Unmarshal(data, &req); err != nil {
				return fmt.Errorf("parsing request file: %w", err)
			}
		} else {
			req.Theme, _ = cmd.Flags().GetString("theme")
			req.CoverImageURL, _ = cmd.Flags().GetString("cover")
			req.Scene, _ = cmd.Flags().GetString("scene")
			req.Style, _ = cmd.Flags().GetString("style")
			pages, _ := cmd.Flags().GetStringArray("page")
			for _, p := range pages {
				req.Pages = append(req.Pages, album.Page{ImageURL: p})
			}
			req.BackCoverURLs, _ = cmd.Flags().GetStringArray("back")
			req.Mode = album.ModeCustom
			if req.Scene != "" || req.Style != "" {
				req.Mode = album.ModeStandard
			}
		}
		if req.CoverImageURL == "" {
			return fmt.Errorf("a cover image is required (--cover or the request file's coverImageUrl)")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/albums", req)
		if err != nil {
			return err
		}
		var queued map[string]string
		if err := decodeJSON(resp, &queued); err != nil {
			return err
		}
		printSuccess("Queued album build %s", queued["id"])

		if !wait {
			return nil
		}
		return waitForAlbum(cmd, client, queued["id"])
	},
}

func waitForAlbum(cmd *cobra.Command, client *apiClient, jobID string) error {
	lastStage := ""
	for {
		select {
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		case <-time.After(2 * time.Second):
		}

		resp, err := client.get(cmd.Context(), "/albums/"+jobID)
		if err != nil {
			return err
		}
		var status struct {
			Status  string `json:"status"`
			Stage   string `json:"stage"`
			Percent int    `json:"percent"`
			Error   string `json:"error"`
			Path    string `json:"path"`
		}
		if err := decodeJSON(resp, &status); err != nil {
			return err
		}

		if status.Stage != "" && status.Stage != lastStage {
			printStep("%s (%d%%)", status.Stage, status.Percent)
			lastStage = status.Stage
		}
		switch status.Status {
		case "completed":
			printSuccess("Album saved to %s", status.Path)
			return nil
		case "failed":
			return fmt.Errorf("album build failed: %s", status.Error)
		}
	}
}

func init() {
	albumBuildCmd.Flags().String("file", "", "JSON file with the full build request")
	albumBuildCmd.Flags().String("theme", "", "album theme for headline generation")
	albumBuildCmd.Flags().String("cover", "", "cover image path or URL")
	albumBuildCmd.Flags().StringArray("page", nil, "content page image (repeatable)")
	albumBuildCmd.Flags().StringArray("back", nil, "back cover image, up to 4 (repeatable)")
	albumBuildCmd.Flags().String("scene", "", "shared scene caption (standard mode)")
	albumBuildCmd.Flags().String("style", "", "shared style caption (standard mode)")
	albumBuildCmd.Flags().Bool("wait", false, "wait for the build to finish")
	albumCmd.AddCommand(albumBuildCmd)
}

// --- creative ---

var describeCmd = &cobra.Command{
	Use:   "describe <image>",
	Short: "Caption an image with an editorial title and description",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading image: %w", err)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/creative/describe", map[string]any{
			"imageUrl": transform.EncodeDataURI(sniffMIME(args[0]), data),
		})
		if err != nil {
			return err
		}
		var caption struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		}
		if err := decodeJSON(resp, &caption); err != nil {
			return err
		}

		fmt.Printf("%s\n%s\n", caption.Title, caption.Description)
		return nil
	},
}

var variationsCmd = &cobra.Command{
	Use:   "variations <category>",
	Short: "Suggest styling variations for a garment category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		count, _ := cmd.Flags().GetInt("count")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/creative/variations", map[string]any{
			"category": args[0],
			"count":    count,
		})
		if err != nil {
			return err
		}
		var result struct {
			Variations []struct {
				Title       string `json:"title"`
				Description string `json:"description"`
				Prompt      string `json:"prompt"`
			} `json:"variations"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		for _, v := range result.Variations {
			fmt.Printf("%s\n  %s\n  prompt: %s\n", v.Title, v.Description, v.Prompt)
		}
		return nil
	},
}

func init() {
	variationsCmd.Flags().Int("count", 3, "number of variations to suggest")
}

// --- portfolio ---

var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Manage the saved portfolio",
}

var portfolioListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved portfolio items, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/portfolio")
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			var raw json.RawMessage
			if err := decodeJSON(resp, &raw); err != nil {
				return err
			}
			fmt.Println(string(raw))
			return nil
		}
		var items []struct {
			ID        string `json:"id"`
			Timestamp int64  `json:"timestamp"`
			Mode      string `json:"mode"`
			Prompt    string `json:"prompt"`
		}
		if err := decodeJSON(resp, &items); err != nil {
			return err
		}

		if len(items) == 0 {
			fmt.Println("Portfolio is empty.")
			return nil
		}
		for _, item := range items {
			ts := time.UnixMilli(item.Timestamp).UTC().Format("2006-01-02 15:04")
			fmt.Printf("%s  %s  %-16s %s\n",
				colorize(colorCyan, shortID(item.ID)),
				ts,
				item.Mode,
				item.Prompt,
			)
		}
		return nil
	},
}

var portfolioAddCmd = &cobra.Command{
	Use:   "add <image>",
	Short: "Save an image into the portfolio",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, _ := cmd.Flags().GetString("mode")
		id, _ := cmd.Flags().GetString("id")
		prompt, _ := cmd.Flags().GetString("prompt")

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading image: %w", err)
		}
		if id == "" {
			id = fmt.Sprintf("cli-%d", time.Now().UnixMilli())
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		body := map[string]any{
			"id":       id,
			"mode":     mode,
			"prompt":   prompt,
			"imageUrl": transform.EncodeDataURI(sniffMIME(args[0]), data),
		}
		resp, err := client.post(cmd.Context(), "/portfolio", body)
		if err != nil {
			return err
		}
		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Saved %s", result["id"])
		return nil
	},
}

var portfolioDeleteCmd = &cobra.Command{
	Use:   "delete <id> [id...]",
	Short: "Delete portfolio items by id",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/portfolio", map[string]any{"ids": args})
		if err != nil {
			return err
		}
		var result map[string]int
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Deleted %d of %d items", result["deleted"], len(args))
		return nil
	},
}

var portfolioClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all portfolio items",
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This will delete ALL portfolio items. Use --confirm to proceed.")
			return nil
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/portfolio/all", nil)
		if err != nil {
			return err
		}
		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Portfolio cleared")
		return nil
	},
}

var portfolioUsageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show portfolio storage usage",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/portfolio/usage")
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			var raw json.RawMessage
			if err := decodeJSON(resp, &raw); err != nil {
				return err
			}
			fmt.Println(string(raw))
			return nil
		}
		var usage struct {
			UsedBytes  int64 `json:"used_bytes"`
			LimitBytes int64 `json:"limit_bytes"`
			ItemCount  int   `json:"item_count"`
			Warning    bool  `json:"warning"`
		}
		if err := decodeJSON(resp, &usage); err != nil {
			return err
		}

		printStatus("Items", "%d", usage.ItemCount)
		printStatus("Used", "%s of %s", formatBytes(usage.UsedBytes), formatBytes(usage.LimitBytes))
		if usage.Warning {
			printWarning("portfolio storage is over 90%% full")
		}
		return nil
	},
}

var portfolioLimitCmd = &cobra.Command{
	Use:   "limit <megabytes>",
	Short: "Set the portfolio storage budget",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mb, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || mb <= 0 {
			return fmt.Errorf("invalid limit %q, expected a positive number of megabytes", args[0])
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.put(cmd.Context(), "/portfolio/limit", map[string]any{"limit_mb": mb})
		if err != nil {
			return err
		}
		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Storage limit set to %d MB", mb)
		return nil
	},
}

var portfolioBackupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Download a portfolio backup as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			output = fmt.Sprintf("portfolio_backup_%s.json", time.Now().UTC().Format("20060102150405"))
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/portfolio/backup")
		if err != nil {
			return err
		}
		data, err := readBinary(resp)
		if err != nil {
			return err
		}
		if err := os.WriteFile(output, data, 0o644); err != nil {
			return fmt.Errorf("writing backup: %w", err)
		}

		printSuccess("Backup saved to %s", output)
		return nil
	},
}

var portfolioRestoreCmd = &cobra.Command{
	Use:   "restore <backup.json>",
	Short: "Restore portfolio items from a backup file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading backup: %w", err)
		}
		var backup json.RawMessage
		if err := json.Unmarshal(data, &backup); err != nil {
			return fmt.Errorf("invalid backup JSON: %w", err)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/portfolio/restore", backup)
		if err != nil {
			return err
		}
		var result map[string]int
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Restored %d items", result["restored"])
		return nil
	},
}

func init() {
	portfolioListCmd.Flags().Bool("json", false, "print the raw JSON response")
	portfolioUsageCmd.Flags().Bool("json", false, "print the raw JSON response")
	portfolioAddCmd.Flags().String("mode", "asset", "workflow mode for the item")
	portfolioAddCmd.Flags().String("id", "", "item id (default: generated)")
	portfolioAddCmd.Flags().String("prompt", "", "descriptive label shown in listings and exports")
	portfolioClearCmd.Flags().Bool("confirm", false, "confirm deletion of all items")
	portfolioBackupCmd.Flags().StringP("output", "o", "", "output file path")

	portfolioCmd.AddCommand(portfolioListCmd)
	portfolioCmd.AddCommand(portfolioAddCmd)
	portfolioCmd.AddCommand(portfolioDeleteCmd)
	portfolioCmd.AddCommand(portfolioClearCmd)
	portfolioCmd.AddCommand(portfolioUsageCmd)
	portfolioCmd.AddCommand(portfolioLimitCmd)
	portfolioCmd.AddCommand(portfolioBackupCmd)
	portfolioCmd.AddCommand(portfolioRestoreCmd)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func sniffMIME(path string) string {
	switch {
	case strings.HasSuffix(path, ".png"):
		return "image/png"
	case strings.HasSuffix(path, ".webp"):
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// --- export ---

var exportCmd = &cobra.Command{
	Use:   "export [id...]",
	Short: "Export portfolio images as a zip archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			output = fmt.Sprintf("portfolio_%s.zip", time.Now().UTC().Format("20060102150405"))
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/export/zip", map[string]any{"ids": args})
		if err != nil {
			return err
		}
		data, err := readBinary(resp)
		if err != nil {
			return err
		}
		if err := os.WriteFile(output, data, 0o644); err != nil {
			return fmt.Errorf("writing archive: %w", err)
		}

		printSuccess("Exported to %s", output)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "output file path")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
