// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

// renderPrompt instructs the model to turn a 2D floor plan into an
// aerial 3D visualization. Both providers send the same prompt alongside
// the source image.
const renderPrompt = `Transform this 2D architectural floor plan into a photorealistic 3D rendering. ` +
	`Show the layout from an elevated isometric perspective with the roof removed, so every room is visible. ` +
	`Keep the wall positions, room proportions, doors, and windows exactly as drawn in the plan. ` +
	`Furnish each room according to its labeled purpose with modern, realistic furniture. ` +
	`Use natural daylight, soft shadows, and neutral contemporary materials.`
