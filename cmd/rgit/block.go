package main

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"rgit-go/internal/model"
	"rgit-go/internal/tree"
)

// block command
var blockCmd = &cobra.Command{
	Use:   "block",
	Short: "Edit the blocks of the working tree",
}

var blockAddCmd = &cobra.Command{
	Use:   "add TYPE [KEY=VALUE...]",
	Short: "Append a block (personal, experience, education, skills, project, container)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		parent, _ := cmd.Flags().GetString("parent")

		typ, err := parseBlockType(args[0])
		if err != nil {
			return err
		}
		fields, err := parseFields(args[1:])
		if err != nil {
			return err
		}

		a, err := newApp(cmd, "AddBlock", args...)
		if err != nil {
			return err
		}
		defer a.Close()

		b, err := a.AddBlock(cmd.Context(), parent, typ, fields)
		if err != nil {
			return err
		}
		fmt.Printf("Added %s block %s\n", b.Type, b.ID)
		return nil
	},
}

var blockSetCmd = &cobra.Command{
	Use:   "set ID KEY=VALUE...",
	Short: "Set content fields of a block",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		fields, err := parseFields(args[1:])
		if err != nil {
			return err
		}

		a, err := newApp(cmd, "UpdateBlock", args...)
		if err != nil {
			return err
		}
		defer a.Close()

		_, err = a.Edit(cmd.Context(), func(t *tree.Tree) error {
			return t.UpdateBlock(args[0], fields)
		})
		return err
	},
}

var blockLayoutCmd = &cobra.Command{
	Use:   "layout ID",
	Short: "Change layout attributes of a block",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		direction, _ := flags.GetString("direction")
		align, _ := flags.GetString("align")
		spacing, _ := flags.GetInt("spacing")
		paddingArg, _ := flags.GetString("padding")

		var padding [4]int
		if flags.Changed("padding") {
			var err error
			if padding, err = parsePadding(paddingArg); err != nil {
				return err
			}
		}

		a, err := newApp(cmd, "UpdateLayout", args...)
		if err != nil {
			return err
		}
		defer a.Close()

		return a.SetLayout(cmd.Context(), args[0], func(l *model.Layout) {
			if flags.Changed("direction") {
				l.Direction = model.Direction(direction)
			}
			if flags.Changed("align") {
				l.Alignment = model.Alignment(align)
			}
			if flags.Changed("spacing") {
				l.Spacing = spacing
			}
			if flags.Changed("padding") {
				l.PaddingTop, l.PaddingRight, l.PaddingBottom, l.PaddingLeft = padding[0], padding[1], padding[2], padding[3]
			}
		})
	},
}

var blockRemoveCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Remove a block and its descendants",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "RemoveBlock", args...)
		if err != nil {
			return err
		}
		defer a.Close()

		_, err = a.Edit(cmd.Context(), func(t *tree.Tree) error {
			return t.RemoveBlock(args[0])
		})
		return err
	},
}

var blockReorderCmd = &cobra.Command{
	Use:   "reorder ID...",
	Short: "Reorder the children of --parent (top level by default)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		parent, _ := cmd.Flags().GetString("parent")

		a, err := newApp(cmd, "Reorder", args...)
		if err != nil {
			return err
		}
		defer a.Close()

		_, err = a.Edit(cmd.Context(), func(t *tree.Tree) error {
			return t.Reorder(parent, args)
		})
		return err
	},
}

var blockListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the working tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ListBlocks")
		if err != nil {
			return err
		}
		defer a.Close()

		ws, err := a.Workspace(cmd.Context())
		if err != nil {
			return err
		}
		if ws.Tree.Len() == 0 {
			fmt.Println("Working tree is empty.")
			return nil
		}
		ws.Tree.Walk(func(b model.Block, depth int) bool {
			fmt.Printf("%s%s  %s  %s\n", strings.Repeat("  ", depth), b.ID, b.Type, formatContent(b.Content))
			return true
		})
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Replace the working tree with a JSON resume document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Import", args...)
		if err != nil {
			return err
		}
		defer a.Close()

		ws, err := a.Import(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d blocks into %s\n", ws.Tree.Len(), ws.BranchName)
		return nil
	},
}

func formatContent(content map[string]string) string {
	parts := make([]string, 0, len(content))
	for _, k := range slices.Sorted(maps.Keys(content)) {
		if content[k] == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%q", k, content[k]))
	}
	return strings.Join(parts, " ")
}

func init() {
	blockCmd.AddCommand(blockAddCmd)
	blockAddCmd.Flags().StringP("parent", "p", "", "Parent block id (default: top level)")
	blockCmd.AddCommand(blockSetCmd)
	blockCmd.AddCommand(blockLayoutCmd)
	blockLayoutCmd.Flags().String("direction", "", "vertical or horizontal")
	blockLayoutCmd.Flags().String("align", "", "start, center or end")
	blockLayoutCmd.Flags().Int("spacing", 0, "Spacing between children")
	blockLayoutCmd.Flags().String("padding", "", "N or TOP,RIGHT,BOTTOM,LEFT")
	blockCmd.AddCommand(blockRemoveCmd)
	blockCmd.AddCommand(blockReorderCmd)
	blockReorderCmd.Flags().StringP("parent", "p", "", "Parent block id (default: top level)")
	blockCmd.AddCommand(blockListCmd)

	rootCmd.AddCommand(blockCmd)
	rootCmd.AddCommand(importCmd)
}
